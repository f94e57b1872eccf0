package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignatureSize is the byte length of a compact recoverable signature.
const SignatureSize = 65

// SignatureEntry couples a compact signature with the signing address it
// recovers to.
type SignatureEntry struct {
	Signature []byte
	Signer    string
}

func (e SignatureEntry) Validate() error {
	if len(e.Signature) != SignatureSize {
		return fmt.Errorf("invalid signature length %d, expected %d", len(e.Signature), SignatureSize)
	}
	if _, err := DecodeSigningAddress(e.Signer); err != nil {
		return fmt.Errorf("invalid signer address: %s", err)
	}
	return nil
}

func (e SignatureEntry) Hex() string {
	return hex.EncodeToString(e.Signature)
}

// ParseSignature decodes a hex signature and recovers its signer for the
// given state.
func ParseSignature(state State, sigHex string) (*SignatureEntry, error) {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %s", err)
	}
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("invalid signature length %d, expected %d", len(sig), SignatureSize)
	}
	signer, err := RecoverSigner(state, sig)
	if err != nil {
		return nil, err
	}
	return &SignatureEntry{Signature: sig, Signer: signer}, nil
}

// SignState produces a compact recoverable signature over the state digest.
// Signing the same state with the same key always yields the same signature.
func SignState(state State, key *secp256k1.PrivateKey) (*SignatureEntry, error) {
	if key == nil {
		return nil, fmt.Errorf("missing private key")
	}
	digest, err := state.Hash()
	if err != nil {
		return nil, err
	}
	sig := ecdsa.SignCompact(key, digest, true)
	signer, err := AddressFromPubKey(key.PubKey())
	if err != nil {
		return nil, err
	}
	return &SignatureEntry{Signature: sig, Signer: signer}, nil
}

// RecoverSigner returns the signing address that produced the given compact
// signature over the state digest.
func RecoverSigner(state State, sig []byte) (string, error) {
	digest, err := state.Hash()
	if err != nil {
		return "", err
	}
	pubkey, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %s", err)
	}
	return AddressFromPubKey(pubkey)
}

// VerifyStateSignature reports whether the signature over the state recovers
// to the expected signer. A mismatch is a plain false so callers can fail
// soft on peer input.
func VerifyStateSignature(state State, sig []byte, expectedSigner string) bool {
	signer, err := RecoverSigner(state, sig)
	if err != nil {
		return false
	}
	return signer == expectedSigner
}
