// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msg

import (
	"io"
	"math"

	"github.com/hushcomm/hush/cipher"
	"github.com/hushcomm/hush/def"
	"github.com/hushcomm/hush/encode"
)

// associatedData returns the canonical encoding of the values every sealed
// message is bound to: thread ID, sender public value, message number, and
// previous chain length.
func associatedData(threadID string, h *Header) []byte {
	buf := make([]byte, 0, 2+len(threadID)+32+8+8)
	buf = append(buf, encode.ToByte2(uint16(len(threadID)))...)
	buf = append(buf, threadID...)
	buf = append(buf, h.SenderPublicValue[:]...)
	buf = append(buf, encode.ToByte8(h.MessageNumber)...)
	buf = append(buf, encode.ToByte8(h.PreviousChainLength)...)
	return buf
}

// Seal encrypts plaintext with messageKey and binds threadID and the header
// values as associated data. A fresh random nonce from rand is prepended to
// the returned ciphertext.
func Seal(messageKey []byte, threadID string, h *Header, plaintext []byte, rand io.Reader) ([]byte, error) {
	if len(plaintext) > def.MaxContentLength {
		return nil, ErrMaxContentLength
	}
	if len(threadID) > math.MaxUint16 {
		return nil, ErrThreadIDLength
	}
	return cipher.Seal(messageKey, plaintext, associatedData(threadID, h), rand)
}

// Open decrypts ciphertext with messageKey, verifying that threadID and the
// header values match the associated data bound at seal time. It returns
// ErrAuthentication if the ciphertext or any bound value was tampered with.
func Open(messageKey []byte, threadID string, h *Header, ciphertext []byte) ([]byte, error) {
	if len(threadID) > math.MaxUint16 {
		return nil, ErrThreadIDLength
	}
	plaintext, err := cipher.Open(messageKey, ciphertext, associatedData(threadID, h))
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
