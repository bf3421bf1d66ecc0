// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"crypto/sha256"
	"crypto/sha512"
)

// SHA256 computes the SHA256 hash of the given buffer.
// In Hush SHA256 is only used for keyfile derivation.
func SHA256(buffer []byte) []byte {
	hash := sha256.New()
	hash.Write(buffer)
	return hash.Sum(make([]byte, 0, sha256.Size))
}

// SHA512 computes the SHA512 hash of the given buffer.
// In Hush SHA512 is used for key material. For example, thread identity
// fingerprints and chain key derivations are computed with SHA512.
func SHA512(buffer []byte) []byte {
	hash := sha512.New()
	hash.Write(buffer)
	return hash.Sum(make([]byte, 0, sha512.Size))
}
