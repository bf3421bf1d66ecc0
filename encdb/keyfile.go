// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encdb

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/hushcomm/hush/cipher"
	"github.com/hushcomm/hush/encode"
)

/*
The keyfile implemented by this package provides a randomly generated
32-byte database key stored in a file which itself is encrypted with
XChaCha20-Poly1305. The number of iterations and the salt are bound as
associated data, so any tampering with the header fails decryption.

Format of keyfile:

 0                   1                   2                   3
 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                  number of iterations for PBKDF2              |
|                                                               |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                                                               |
|                        salt for PBKDF2                        |
|                                                               |
|                                                               |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                                                               |
|                     XChaCha20-Poly1305                        |
|                     sealed database key                       |
|                    (nonce, key, auth tag)                     |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/

// writeKeyfile writes a key file with the given filename that contains the
// supplied key in sealed form.
func writeKeyfile(filename string, passphrase []byte, iter int, key []byte) error {
	exists, err := fileExists(filename)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("encdb: keyfile '%s' exists already", filename)
	}
	if iter < 1 || iter > 2147483647 {
		return fmt.Errorf("encdb: writeKeyfile: invalid iter value")
	}
	uiter := uint64(iter)
	if len(key) != cipher.AEADKeySize {
		return fmt.Errorf("encdb: writeKeyfile: len(key) != %d", cipher.AEADKeySize)
	}
	keyfile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("encdb: %w", err)
	}
	defer keyfile.Close()
	var salt = make([]byte, 32)
	if _, err := io.ReadFull(cipher.RandReader, salt); err != nil {
		return err
	}
	// derive file key from passphrase
	dk := pbkdf2.Key(passphrase, salt, iter, cipher.AEADKeySize, sha256.New)
	header := append(encode.ToByte8(uiter), salt...)
	sealed, err := cipher.Seal(dk, key, header, cipher.RandReader)
	if err != nil {
		return err
	}
	if _, err := keyfile.Write(header); err != nil {
		return err
	}
	if _, err := keyfile.Write(sealed); err != nil {
		return err
	}
	return nil
}

// generateKeyfile generates a key file with the given filename that contains
// a randomly generated and sealed database key.
// The generated key is protected by a passphrase, which is processed by
// PBKDF2 with iter many iterations to derive the key that seals the
// generated key. The function returns the generated key in unencrypted form.
func generateKeyfile(filename string, passphrase []byte, iter int) (key []byte, err error) {
	var rawKey = make([]byte, cipher.AEADKeySize)
	if _, err := io.ReadFull(cipher.RandReader, rawKey); err != nil {
		return nil, err
	}
	if err := writeKeyfile(filename, passphrase, iter, rawKey); err != nil {
		return nil, err
	}
	return rawKey, nil
}

// ReadKeyfile reads a randomly generated and sealed database key from the
// file with the given filename and returns it in unencrypted form.
// The key is protected by a passphrase, which is processed by PBKDF2 to
// derive the key that unseals the database key. A wrong passphrase fails
// authentication and returns an error.
func ReadKeyfile(filename string, passphrase []byte) (key []byte, err error) {
	keyfile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("encdb: %w", err)
	}
	defer keyfile.Close()
	var biter = make([]byte, 8)
	if _, err := io.ReadFull(keyfile, biter); err != nil {
		return nil, fmt.Errorf("encdb: ReadKeyfile: %w", err)
	}
	uiter := encode.ToUint64(biter)
	if uiter < 1 || uiter > 2147483647 {
		return nil, fmt.Errorf("encdb: ReadKeyfile: invalid iter value")
	}
	iter := int(uiter)
	var salt = make([]byte, 32)
	if _, err := io.ReadFull(keyfile, salt); err != nil {
		return nil, fmt.Errorf("encdb: ReadKeyfile: %w", err)
	}
	var sealed = make([]byte, cipher.AEADOverhead+cipher.AEADKeySize)
	if _, err := io.ReadFull(keyfile, sealed); err != nil {
		return nil, fmt.Errorf("encdb: ReadKeyfile: %w", err)
	}
	// derive file key from passphrase
	dk := pbkdf2.Key(passphrase, salt, iter, cipher.AEADKeySize, sha256.New)
	header := append(biter, salt...)
	key, err = cipher.Open(dk, sealed, header)
	if err != nil {
		return nil, fmt.Errorf("encdb: ReadKeyfile: %w", err)
	}
	return key, nil
}

func replaceKeyfile(filename string, oldPassphrase, newPassphrase []byte, newIter int) error {
	key, err := ReadKeyfile(filename, oldPassphrase)
	if err != nil {
		return err
	}
	tmpfile := filename + ".new"
	os.Remove(tmpfile) // ignore error
	if err := writeKeyfile(tmpfile, newPassphrase, newIter, key); err != nil {
		return err
	}
	return os.Rename(tmpfile, filename)
}
