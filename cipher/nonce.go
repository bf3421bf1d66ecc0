// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"io"
)

// Nonce generates a random nonce of the given size.
func Nonce(rand io.Reader, size int) []byte {
	var b = make([]byte, size)
	_, err := io.ReadFull(rand, b)
	if err != nil {
		panic(err)
	}
	return b
}
