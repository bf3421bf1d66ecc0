// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"crypto/hmac"
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HMAC computes the keyed-hash message authentication code of buffer with the
// given key.
func HMAC(key, buffer []byte) []byte {
	hash := hmac.New(sha512.New, key)
	hash.Write(buffer)
	return hash.Sum(make([]byte, 0, sha512.Size))
}

// HKDF derives size bytes of key material from secret with the given salt
// and info label (HKDF-SHA512, RFC 5869).
func HKDF(secret, salt, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha512.New, secret, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}
