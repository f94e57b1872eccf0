package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

// SigningAddressHRP is the human readable prefix of bech32-encoded signing
// addresses.
const SigningAddressHRP = "fmv"

// DestinationSize is the byte length of a payout destination. A destination
// is either a channel id or a left-padded address hash.
const DestinationSize = 32

// Participant identifies one party of a channel. The routing id addresses
// messages on the transport, the signing address authenticates states, the
// destination receives payouts.
type Participant struct {
	ParticipantID  string
	SigningAddress string
	Destination    string
}

func (p Participant) Validate() error {
	if len(p.ParticipantID) <= 0 {
		return fmt.Errorf("missing participant id")
	}
	if _, err := DecodeSigningAddress(p.SigningAddress); err != nil {
		return fmt.Errorf("invalid signing address: %s", err)
	}
	if _, err := hex.DecodeString(p.Destination); err != nil || len(p.Destination) != DestinationSize*2 {
		return fmt.Errorf("invalid destination: must be %d hex chars", DestinationSize*2)
	}
	return nil
}

// AddressFromPubKey derives the bech32 signing address from a compressed
// public key.
func AddressFromPubKey(key *secp256k1.PublicKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("missing public key")
	}
	grp, err := bech32.ConvertBits(hash160(key.SerializeCompressed()), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(SigningAddressHRP, grp)
}

// DecodeSigningAddress checks the prefix and returns the 20-byte key hash the
// address commits to.
func DecodeSigningAddress(addr string) ([]byte, error) {
	hrp, buf, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return nil, err
	}
	if hrp != SigningAddressHRP {
		return nil, fmt.Errorf("invalid prefix")
	}
	grp, err := bech32.ConvertBits(buf, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(grp) < ripemd160.Size {
		return nil, fmt.Errorf("invalid key hash length")
	}
	return grp[:ripemd160.Size], nil
}

// DestinationFromAddress converts a signing address into a payout
// destination by left-padding its key hash to 32 bytes.
func DestinationFromAddress(addr string) (string, error) {
	keyHash, err := DecodeSigningAddress(addr)
	if err != nil {
		return "", err
	}
	buf := make([]byte, DestinationSize)
	copy(buf[DestinationSize-len(keyHash):], keyHash)
	return hex.EncodeToString(buf), nil
}

func hash160(buf []byte) []byte {
	calcHash := func(buf []byte, hasher hash.Hash) []byte {
		_, _ = hasher.Write(buf)
		return hasher.Sum(nil)
	}
	return calcHash(calcHash(buf, sha256.New()), ripemd160.New())
}
