// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msg

import (
	"github.com/hushcomm/hush/cipher"
)

// proofDigest returns the digest the envelope proof signs: the associated
// data of the message followed by its ciphertext.
func (e *Envelope) proofDigest(threadID string) []byte {
	data := associatedData(threadID, &e.Header)
	data = append(data, e.Ciphertext...)
	return cipher.SHA512(data)
}

// SignProof attests the envelope with the sender's long-term signature key.
// The proof covers the thread ID, the header, and the ciphertext.
func (e *Envelope) SignProof(threadID string, key *cipher.Ed25519Key) {
	e.Proof = key.Sign(e.proofDigest(threadID))
}

// VerifyProof checks the envelope attestation against the sender's public
// signature key. An envelope without a proof does not verify.
func (e *Envelope) VerifyProof(threadID string, key *cipher.Ed25519Key) bool {
	if len(e.Proof) == 0 {
		return false
	}
	return key.Verify(e.proofDigest(threadID), e.Proof)
}
