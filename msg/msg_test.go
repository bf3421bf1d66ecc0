// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msg

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hushcomm/hush/cipher"
)

func testEnvelope(t *testing.T) *Envelope {
	t.Helper()
	key, err := cipher.Curve25519Generate(cipher.RandReader)
	require.NoError(t, err)
	e := &Envelope{
		Ciphertext: []byte("not actually sealed"),
		Header: Header{
			MessageNumber:       7,
			PreviousChainLength: 3,
		},
	}
	copy(e.Header.SenderPublicValue[:], key.PublicKey()[:])
	return e
}

func TestEnvelopeJSONFormat(t *testing.T) {
	e := testEnvelope(t)
	jsn, err := e.Marshal()
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(jsn, &fields))

	ciphertext, ok := fields["ciphertext"].(string)
	require.True(t, ok, "ciphertext must be a string")
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err, "ciphertext must be standard base64")
	assert.Equal(t, e.Ciphertext, decoded)

	header, ok := fields["header"].(map[string]interface{})
	require.True(t, ok, "header must be an object")
	pub, ok := header["senderPublicValue"].(string)
	require.True(t, ok, "senderPublicValue must be a string")
	assert.Equal(t, hex.EncodeToString(e.Header.SenderPublicValue[:]), pub)
	assert.Equal(t, float64(7), header["messageNumber"])
	assert.Equal(t, float64(3), header["previousChainLength"])

	_, present := fields["proof"]
	assert.False(t, present, "empty proof must be omitted")
}

func TestEnvelopeParseRoundtrip(t *testing.T) {
	e := testEnvelope(t)
	jsn, err := e.Marshal()
	require.NoError(t, err)
	parsed, err := Parse(jsn)
	require.NoError(t, err)
	assert.Equal(t, e, parsed)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		jsn  string
	}{
		{"garbage", "not json"},
		{"missing ciphertext", `{"header":{"senderPublicValue":"` + hex.EncodeToString(make([]byte, 32)) + `","messageNumber":0,"previousChainLength":0}}`},
		{"short public value", `{"ciphertext":"YWJj","header":{"senderPublicValue":"abcd","messageNumber":0,"previousChainLength":0}}`},
		{"odd hex", `{"ciphertext":"YWJj","header":{"senderPublicValue":"xyz","messageNumber":0,"previousChainLength":0}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.jsn))
			assert.Error(t, err)
		})
	}
}

func TestSealOpen(t *testing.T) {
	key := cipher.Nonce(cipher.RandReader, cipher.AEADKeySize)
	h := &Header{MessageNumber: 1, PreviousChainLength: 0}
	copy(h.SenderPublicValue[:], cipher.Nonce(cipher.RandReader, 32))
	plaintext := []byte("Hello, World!")

	ciphertext, err := Seal(key, "thread-1", h, plaintext, cipher.RandReader)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	opened, err := Open(key, "thread-1", h, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealDistinctCiphertexts(t *testing.T) {
	key := cipher.Nonce(cipher.RandReader, cipher.AEADKeySize)
	h := &Header{}
	a, err := Seal(key, "thread-1", h, []byte("same plaintext"), cipher.RandReader)
	require.NoError(t, err)
	b, err := Seal(key, "thread-1", h, []byte("same plaintext"), cipher.RandReader)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonces must differ between seals")
}

func TestOpenTamper(t *testing.T) {
	key := cipher.Nonce(cipher.RandReader, cipher.AEADKeySize)
	h := &Header{MessageNumber: 5, PreviousChainLength: 2}
	copy(h.SenderPublicValue[:], cipher.Nonce(cipher.RandReader, 32))
	ciphertext, err := Seal(key, "thread-1", h, []byte("payload"), cipher.RandReader)
	require.NoError(t, err)

	tests := []struct {
		name string
		open func() ([]byte, error)
	}{
		{"wrong thread", func() ([]byte, error) {
			return Open(key, "thread-2", h, ciphertext)
		}},
		{"wrong message number", func() ([]byte, error) {
			mod := *h
			mod.MessageNumber++
			return Open(key, "thread-1", &mod, ciphertext)
		}},
		{"wrong previous chain length", func() ([]byte, error) {
			mod := *h
			mod.PreviousChainLength++
			return Open(key, "thread-1", &mod, ciphertext)
		}},
		{"wrong public value", func() ([]byte, error) {
			mod := *h
			mod.SenderPublicValue[0] ^= 0x01
			return Open(key, "thread-1", &mod, ciphertext)
		}},
		{"flipped ciphertext bit", func() ([]byte, error) {
			mod := append([]byte(nil), ciphertext...)
			mod[len(mod)-1] ^= 0x01
			return Open(key, "thread-1", h, mod)
		}},
		{"wrong key", func() ([]byte, error) {
			other := cipher.Nonce(cipher.RandReader, cipher.AEADKeySize)
			return Open(other, "thread-1", h, ciphertext)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.open()
			assert.ErrorIs(t, err, ErrAuthentication)
		})
	}
}

func TestSealMaxContentLength(t *testing.T) {
	key := cipher.Nonce(cipher.RandReader, cipher.AEADKeySize)
	big := make([]byte, 64*1024+1)
	_, err := Seal(key, "thread-1", &Header{}, big, cipher.RandReader)
	assert.ErrorIs(t, err, ErrMaxContentLength)
}

func TestProof(t *testing.T) {
	sigKey, err := cipher.Ed25519Generate(cipher.RandReader)
	require.NoError(t, err)
	e := testEnvelope(t)

	assert.False(t, e.VerifyProof("thread-1", sigKey), "unsigned envelope must not verify")

	e.SignProof("thread-1", sigKey)
	require.NotEmpty(t, e.Proof)
	assert.True(t, e.VerifyProof("thread-1", sigKey))
	assert.False(t, e.VerifyProof("thread-2", sigKey), "proof is bound to the thread")

	e.Ciphertext[0] ^= 0x01
	assert.False(t, e.VerifyProof("thread-1", sigKey), "proof is bound to the ciphertext")
	e.Ciphertext[0] ^= 0x01

	other, err := cipher.Ed25519Generate(cipher.RandReader)
	require.NoError(t, err)
	assert.False(t, e.VerifyProof("thread-1", other))
}

func TestProofSurvivesJSON(t *testing.T) {
	sigKey, err := cipher.Ed25519Generate(cipher.RandReader)
	require.NoError(t, err)
	e := testEnvelope(t)
	e.SignProof("thread-1", sigKey)

	jsn, err := e.Marshal()
	require.NoError(t, err)
	parsed, err := Parse(jsn)
	require.NoError(t, err)
	assert.True(t, parsed.VerifyProof("thread-1", sigKey))
}
