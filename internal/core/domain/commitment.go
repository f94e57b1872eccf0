package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// SaltSize is the byte length of a commitment salt.
const SaltSize = 32

// commitmentTag domain-separates commitment digests from other sha256 uses.
var commitmentTag = []byte("forcemove/commitment/v1")

// Commitment is the hash a participant publishes in place of a hidden
// choice. The choice and salt stay private until both sides have committed.
type Commitment [sha256.Size]byte

// NewCommitment derives the commitment for a choice under the given salt.
func NewCommitment(choice []byte, salt [SaltSize]byte) Commitment {
	h := sha256.New()
	h.Write(commitmentTag)
	h.Write(salt[:])
	h.Write(choice)
	var c Commitment
	copy(c[:], h.Sum(nil))
	return c
}

// Reveal reports whether the choice and salt re-derive this commitment. A
// mismatched reveal must be treated as an invalid transition by the caller.
func (c Commitment) Reveal(choice []byte, salt [SaltSize]byte) bool {
	derived := NewCommitment(choice, salt)
	return subtle.ConstantTimeCompare(c[:], derived[:]) == 1
}

func (c Commitment) Hex() string {
	return hex.EncodeToString(c[:])
}

// ParseCommitment decodes a hex-encoded commitment.
func ParseCommitment(commitmentHex string) (Commitment, error) {
	var c Commitment
	buf, err := hex.DecodeString(commitmentHex)
	if err != nil {
		return c, fmt.Errorf("invalid commitment hex: %s", err)
	}
	if len(buf) != sha256.Size {
		return c, fmt.Errorf("invalid commitment length %d, expected %d", len(buf), sha256.Size)
	}
	copy(c[:], buf)
	return c, nil
}

// RandomSalt draws a fresh salt from the system entropy source.
func RandomSalt() ([SaltSize]byte, error) {
	var salt [SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("failed to draw salt: %s", err)
	}
	return salt, nil
}
