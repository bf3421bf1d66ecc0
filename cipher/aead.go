// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEADKeySize is the key size of the XChaCha20-Poly1305 AEAD.
const AEADKeySize = chacha20poly1305.KeySize

// AEADOverhead is the number of bytes Seal adds to a plaintext (nonce plus
// authentication tag).
const AEADOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// Seal encrypts plaintext with XChaCha20-Poly1305 under the given 32-byte
// key, binding associatedData into the authentication tag. The randomly
// generated nonce is prepended to the returned ciphertext.
func Seal(key, plaintext, associatedData []byte, rand io.Reader) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: Seal(): %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

// Open decrypts a ciphertext produced by Seal with the given 32-byte key and
// associatedData. It expects the nonce prepended to the ciphertext and
// returns an error if authentication fails.
func Open(key, ciphertext, associatedData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: Open(): %w", err)
	}
	if len(ciphertext) < chacha20poly1305.NonceSizeX+aead.Overhead() {
		return nil, fmt.Errorf("cipher: Open(): ciphertext too short")
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	return aead.Open(nil, nonce, ciphertext[chacha20poly1305.NonceSizeX:], associatedData)
}
