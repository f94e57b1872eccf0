package wallet_test

import (
	"testing"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/wallet"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

const (
	alice = 0
	bob   = 1

	testAssetHolder = "adjudicator-main"
	testShare       = uint64(500)
	testTotal       = uint64(1000)
)

// bench wires two wallets into one channel and provides state builders for
// driving them through the protocol.
type bench struct {
	channelID    string
	constants    domain.ChannelConstants
	participants []domain.Participant
	keys         []*secp256k1.PrivateKey
	wallets      []*wallet.Wallet
}

func newBench(t *testing.T) *bench {
	t.Helper()
	ids := []string{"alice", "bob"}
	b := &bench{}
	for _, id := range ids {
		key, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		addr, err := domain.AddressFromPubKey(key.PubKey())
		require.NoError(t, err)
		dest, err := domain.DestinationFromAddress(addr)
		require.NoError(t, err)
		b.keys = append(b.keys, key)
		b.participants = append(b.participants, domain.Participant{
			ParticipantID:  id,
			SigningAddress: addr,
			Destination:    dest,
		})
		w, err := wallet.NewWallet(id, key, nil)
		require.NoError(t, err)
		b.wallets = append(b.wallets, w)
	}
	b.constants = domain.ChannelConstants{
		ChainID:           "forcemove-test",
		ChannelNonce:      7,
		Participants:      b.participants,
		AppDefinition:     "rps-v1",
		ChallengeDuration: 60,
	}
	b.channelID = b.constants.ChannelID()
	return b
}

func (b *bench) outcome(aliceAmount, bobAmount uint64) domain.Outcome {
	return domain.SimpleAllocation{
		AssetHolder: testAssetHolder,
		Items: []domain.AllocationItem{
			{Destination: b.participants[alice].Destination, Amount: aliceAmount},
			{Destination: b.participants[bob].Destination, Amount: bobAmount},
		},
	}
}

func (b *bench) stateAt(turn uint32) domain.State {
	return domain.State{
		ChannelConstants: b.constants,
		StateVariables: domain.StateVariables{
			Outcome: b.outcome(testShare, testShare),
			TurnNum: turn,
		},
	}
}

// signedAt builds a signed state for the given turn, signed by its mover.
func (b *bench) signedAt(t *testing.T, turn uint32) domain.SignedState {
	t.Helper()
	state := b.stateAt(turn)
	entry, err := domain.SignState(state, b.keys[state.MoverIndex()])
	require.NoError(t, err)
	ss := domain.NewSignedState(state)
	require.NoError(t, ss.AddSignature(*entry))
	return ss
}

// relayed extracts the signed state carried by an outgoing message.
func relayed(t *testing.T, msg *domain.Message) domain.SignedState {
	t.Helper()
	require.NotNil(t, msg)
	require.Len(t, msg.Data.SignedStates, 1)
	ss, err := domain.DeserializeSignedState(msg.Data.SignedStates[0])
	require.NoError(t, err)
	return *ss
}

func (b *bench) dispatch(who int, event wallet.Event) (wallet.ChannelStatus, wallet.Outbox) {
	return b.wallets[who].Dispatch(b.channelID, event)
}

// exchangeSetup walks both wallets through the pre-fund state exchange.
func (b *bench) exchangeSetup(t *testing.T) {
	t.Helper()
	status, outbox := b.dispatch(alice, wallet.OwnPositionReceived{State: b.stateAt(0)})
	require.Equal(t, wallet.WaitForPreFundSetup, status.Stage)
	preFundA := relayed(t, outbox.Message)

	status, _ = b.dispatch(bob, wallet.OpponentPositionReceived{SignedState: preFundA})
	require.Equal(t, wallet.WaitForPreFundSetup, status.Stage)

	status, outbox = b.dispatch(bob, wallet.OwnPositionReceived{State: b.stateAt(1)})
	require.Equal(t, wallet.WaitForFundingRequest, status.Stage)

	status, _ = b.dispatch(alice, wallet.OpponentPositionReceived{SignedState: relayed(t, outbox.Message)})
	require.Equal(t, wallet.WaitForFundingRequest, status.Stage)
}

// fundToRunning drives both wallets from scratch all the way to a funded,
// running channel.
func (b *bench) fundToRunning(t *testing.T) {
	t.Helper()
	b.exchangeSetup(t)

	for _, who := range []int{alice, bob} {
		b.dispatch(who, wallet.FundingRequested{})
	}

	status, outbox := b.dispatch(alice, wallet.FundingApproved{})
	require.Equal(t, wallet.WaitForDepositInitiation, status.Stage)
	require.NotNil(t, outbox.Transaction)
	require.Equal(t, wallet.DepositTx, outbox.Transaction.Type)
	require.Equal(t, testShare, outbox.Transaction.Amount)

	status, _ = b.dispatch(bob, wallet.FundingApproved{})
	require.Equal(t, wallet.WaitForPeerDeposit, status.Stage)

	b.dispatch(alice, wallet.TransactionSent{})
	b.dispatch(alice, wallet.TransactionSubmitted{TxID: "tx-deposit-a"})
	status, _ = b.dispatch(alice, wallet.DepositedEvent{
		ChannelID: b.channelID, AmountDeposited: testShare, TotalHoldings: testShare,
	})
	require.Equal(t, wallet.WaitForFundingConfirmation, status.Stage)

	status, outbox = b.dispatch(bob, wallet.DepositedEvent{
		ChannelID: b.channelID, AmountDeposited: testShare, TotalHoldings: testShare,
	})
	require.Equal(t, wallet.WaitForDepositInitiation, status.Stage)
	require.NotNil(t, outbox.Transaction)
	require.Equal(t, testShare, outbox.Transaction.ExpectedHeld)

	b.dispatch(bob, wallet.TransactionSent{})
	b.dispatch(bob, wallet.TransactionSubmitted{TxID: "tx-deposit-b"})
	status, _ = b.dispatch(bob, wallet.DepositedEvent{
		ChannelID: b.channelID, AmountDeposited: testShare, TotalHoldings: testTotal,
	})
	require.Equal(t, wallet.WaitForPostFundSetup, status.Stage)

	status, _ = b.dispatch(alice, wallet.DepositedEvent{
		ChannelID: b.channelID, AmountDeposited: testShare, TotalHoldings: testTotal,
	})
	require.Equal(t, wallet.WaitForPostFundSetup, status.Stage)

	status, outbox = b.dispatch(alice, wallet.OwnPositionReceived{State: b.stateAt(2)})
	require.Equal(t, wallet.WaitForPostFundSetup, status.Stage)
	postFundA := relayed(t, outbox.Message)

	b.dispatch(bob, wallet.OpponentPositionReceived{SignedState: postFundA})
	status, outbox = b.dispatch(bob, wallet.OwnPositionReceived{State: b.stateAt(3)})
	require.Equal(t, wallet.AcknowledgeFundingSuccess, status.Stage)
	requireReport(t, outbox, wallet.FundingSuccessReport)

	status, outbox = b.dispatch(alice, wallet.OpponentPositionReceived{SignedState: relayed(t, outbox.Message)})
	require.Equal(t, wallet.AcknowledgeFundingSuccess, status.Stage)
	requireReport(t, outbox, wallet.FundingSuccessReport)

	for _, who := range []int{alice, bob} {
		status, _ = b.dispatch(who, wallet.FundingSuccessAcknowledged{})
		require.Equal(t, wallet.Running, status.Stage)
	}
}

// playTo advances the running channel turn by turn up to and including the
// given turn, relaying each move to the other wallet.
func (b *bench) playTo(t *testing.T, turn uint32) {
	t.Helper()
	for next := uint32(4); next <= turn; next++ {
		mover := int(next) % len(b.participants)
		other := 1 - mover
		status, outbox := b.dispatch(mover, wallet.OwnPositionReceived{State: b.stateAt(next)})
		require.Equal(t, wallet.Running, status.Stage)
		status, _ = b.dispatch(other, wallet.OpponentPositionReceived{SignedState: relayed(t, outbox.Message)})
		require.Equal(t, wallet.Running, status.Stage)
		require.Equal(t, next, status.TurnNum)
	}
}

func requireReport(t *testing.T, outbox wallet.Outbox, reportType wallet.ReportType) {
	t.Helper()
	for _, r := range outbox.Reports {
		if r.Type == reportType {
			return
		}
	}
	require.Failf(t, "missing report", "expected a %s report in %v", reportType, outbox.Reports)
}
