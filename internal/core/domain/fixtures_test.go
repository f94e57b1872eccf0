package domain_test

import (
	"testing"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

const testAssetHolder = "adjudicator-main"

func newTestParticipant(t *testing.T, id string) (domain.Participant, *secp256k1.PrivateKey) {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	addr, err := domain.AddressFromPubKey(key.PubKey())
	require.NoError(t, err)
	dest, err := domain.DestinationFromAddress(addr)
	require.NoError(t, err)
	return domain.Participant{
		ParticipantID:  id,
		SigningAddress: addr,
		Destination:    dest,
	}, key
}

func newTestState(t *testing.T, turnNum uint32) (domain.State, []*secp256k1.PrivateKey) {
	t.Helper()
	alice, aliceKey := newTestParticipant(t, "alice")
	bob, bobKey := newTestParticipant(t, "bob")
	state := domain.State{
		ChannelConstants: domain.ChannelConstants{
			ChainID:           "forcemove-test",
			ChannelNonce:      7,
			Participants:      []domain.Participant{alice, bob},
			AppDefinition:     "rps-v1",
			ChallengeDuration: 300,
		},
		StateVariables: domain.StateVariables{
			Outcome: domain.SimpleAllocation{
				AssetHolder: testAssetHolder,
				Items: []domain.AllocationItem{
					{Destination: alice.Destination, Amount: 500},
					{Destination: bob.Destination, Amount: 500},
				},
			},
			TurnNum: turnNum,
		},
	}
	return state, []*secp256k1.PrivateKey{aliceKey, bobKey}
}
