package domain

import "fmt"

// SignedState is a channel state plus the signatures collected for it over
// the channel lifetime, at most one per distinct signer.
type SignedState struct {
	State
	Signatures []SignatureEntry
}

// NewSignedState signs nothing: it wraps a state ready to collect
// signatures.
func NewSignedState(state State) SignedState {
	return SignedState{State: state}
}

// AddSignature records a signature entry after checking the signer is a
// channel participant and the signature verifies. Re-adding an already
// recorded signer is a no-op, which keeps message handling idempotent.
func (ss *SignedState) AddSignature(entry SignatureEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if _, ok := ss.ParticipantIndex(entry.Signer); !ok {
		return fmt.Errorf("signer %s is not a channel participant", entry.Signer)
	}
	if !VerifyStateSignature(ss.State, entry.Signature, entry.Signer) {
		return fmt.Errorf("signature does not verify against signer %s", entry.Signer)
	}
	if ss.HasSignatureFrom(entry.Signer) {
		return nil
	}
	ss.Signatures = append(ss.Signatures, entry)
	return nil
}

func (ss SignedState) HasSignatureFrom(signer string) bool {
	for _, entry := range ss.Signatures {
		if entry.Signer == signer {
			return true
		}
	}
	return false
}

// SignedByMover reports whether the participant whose turn the state belongs
// to has signed it.
func (ss SignedState) SignedByMover() bool {
	return ss.HasSignatureFrom(ss.Mover().SigningAddress)
}

// Supported reports whether every channel participant has signed the state.
func (ss SignedState) Supported() bool {
	for _, p := range ss.Participants {
		if !ss.HasSignatureFrom(p.SigningAddress) {
			return false
		}
	}
	return true
}

// SignatureHexes returns the wire form of the collected signatures.
func (ss SignedState) SignatureHexes() []string {
	sigs := make([]string, 0, len(ss.Signatures))
	for _, entry := range ss.Signatures {
		sigs = append(sigs, entry.Hex())
	}
	return sigs
}
