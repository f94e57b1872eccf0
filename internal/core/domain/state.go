package domain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelConstants is the immutable identity of a channel. Any two channels
// differing in one of these fields have distinct channel ids.
type ChannelConstants struct {
	ChainID           string
	ChannelNonce      uint64
	Participants      []Participant
	AppDefinition     string
	ChallengeDuration uint32
}

func (c ChannelConstants) Validate() error {
	if len(c.ChainID) <= 0 {
		return fmt.Errorf("missing chain id")
	}
	if len(c.Participants) < 2 {
		return fmt.Errorf("channel needs at least 2 participants")
	}
	seen := make(map[string]struct{})
	for _, p := range c.Participants {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := seen[p.SigningAddress]; ok {
			return fmt.Errorf("duplicated signing address %s", p.SigningAddress)
		}
		seen[p.SigningAddress] = struct{}{}
	}
	if len(c.AppDefinition) <= 0 {
		return fmt.Errorf("missing app definition")
	}
	if c.ChallengeDuration <= 0 {
		return fmt.Errorf("missing challenge duration")
	}
	return nil
}

// ChannelID derives the channel identifier by hashing the encoded constants.
func (c ChannelConstants) ChannelID() string {
	return chainhash.HashH(encodeConstants(c)).String()
}

// ParticipantIndex returns the positional role of the given signing address.
func (c ChannelConstants) ParticipantIndex(signingAddress string) (int, bool) {
	for i, p := range c.Participants {
		if p.SigningAddress == signingAddress {
			return i, true
		}
	}
	return -1, false
}

// StateVariables are the mutable per-turn fields of a channel state.
type StateVariables struct {
	Outcome Outcome
	TurnNum uint32
	AppData []byte
	IsFinal bool
}

// State is one full channel state: immutable constants plus per-turn
// variables.
type State struct {
	ChannelConstants
	StateVariables
}

func (s State) Validate() error {
	if err := s.ChannelConstants.Validate(); err != nil {
		return err
	}
	if s.Outcome == nil {
		return fmt.Errorf("missing outcome")
	}
	return s.Outcome.Validate()
}

// MoverIndex returns the participant index whose turn the state's turn
// number belongs to.
func (s State) MoverIndex() int {
	return int(s.TurnNum) % len(s.Participants)
}

// Mover returns the participant expected to have produced this state.
func (s State) Mover() Participant {
	return s.Participants[s.MoverIndex()]
}

// Hash returns the digest signed by participants.
func (s State) Hash() ([]byte, error) {
	encoded, err := s.Encode()
	if err != nil {
		return nil, err
	}
	h := chainhash.DoubleHashH(encoded)
	return h[:], nil
}

// Equal reports deep equality of two states through their canonical
// encodings.
func (s State) Equal(other State) bool {
	a, err := s.Encode()
	if err != nil {
		return false
	}
	b, err := other.Encode()
	if err != nil {
		return false
	}
	return string(a) == string(b)
}
