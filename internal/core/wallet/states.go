package wallet

import (
	"github.com/channelforge/forcemove/internal/core/domain"
)

// Stage is the position of a channel inside its lifecycle for one
// participant. Reducers switch exhaustively over it.
type Stage int

const (
	// Opening
	WaitForChannel Stage = iota
	WaitForPreFundSetup

	// Funding
	WaitForFundingRequest
	ApproveFunding
	WaitForDepositInitiation
	WaitForDepositSubmission
	WaitForDepositConfirmation
	WaitForPeerDeposit
	WaitForFundingConfirmation
	WaitForPostFundSetup
	AcknowledgeFundingSuccess
	AcknowledgeFundingDeclined
	DepositTransactionFailed

	// Running
	Running

	// Challenging (we initiated the challenge)
	ApproveChallenge
	WaitForChallengeSubmission
	WaitForChallengeConfirmation
	WaitForResponseOrTimeout
	AcknowledgeChallengeResponse
	ChallengeTransactionFailed

	// Responding (the peer challenged us)
	AcknowledgeChallenge
	ChooseResponse
	TakeMoveInApp
	InitiateResponse
	WaitForResponseSubmission
	WaitForResponseConfirmation
	AcknowledgeChallengeComplete
	ResponseTransactionFailed

	// Shared dispute terminal
	AcknowledgeChallengeTimeout

	// Closing
	ApproveConclude
	WaitForOpponentConclude
	AcknowledgeConcludeSuccess

	// Withdrawing
	ApproveWithdrawal
	WaitForWithdrawalInitiation
	WaitForWithdrawalConfirmation
	AcknowledgeWithdrawalSuccess

	// Terminal: the record is eligible for destruction.
	Closed
)

func (s Stage) String() string {
	switch s {
	case WaitForChannel:
		return "WAIT_FOR_CHANNEL"
	case WaitForPreFundSetup:
		return "WAIT_FOR_PRE_FUND_SETUP"
	case WaitForFundingRequest:
		return "WAIT_FOR_FUNDING_REQUEST"
	case ApproveFunding:
		return "APPROVE_FUNDING"
	case WaitForDepositInitiation:
		return "WAIT_FOR_DEPOSIT_INITIATION"
	case WaitForDepositSubmission:
		return "WAIT_FOR_DEPOSIT_SUBMISSION"
	case WaitForDepositConfirmation:
		return "WAIT_FOR_DEPOSIT_CONFIRMATION"
	case WaitForPeerDeposit:
		return "WAIT_FOR_PEER_DEPOSIT"
	case WaitForFundingConfirmation:
		return "WAIT_FOR_FUNDING_CONFIRMATION"
	case WaitForPostFundSetup:
		return "WAIT_FOR_POST_FUND_SETUP"
	case AcknowledgeFundingSuccess:
		return "ACKNOWLEDGE_FUNDING_SUCCESS"
	case AcknowledgeFundingDeclined:
		return "ACKNOWLEDGE_FUNDING_DECLINED"
	case DepositTransactionFailed:
		return "DEPOSIT_TRANSACTION_FAILED"
	case Running:
		return "RUNNING"
	case ApproveChallenge:
		return "APPROVE_CHALLENGE"
	case WaitForChallengeSubmission:
		return "WAIT_FOR_CHALLENGE_SUBMISSION"
	case WaitForChallengeConfirmation:
		return "WAIT_FOR_CHALLENGE_CONFIRMATION"
	case WaitForResponseOrTimeout:
		return "WAIT_FOR_RESPONSE_OR_TIMEOUT"
	case AcknowledgeChallengeResponse:
		return "ACKNOWLEDGE_CHALLENGE_RESPONSE"
	case ChallengeTransactionFailed:
		return "CHALLENGE_TRANSACTION_FAILED"
	case AcknowledgeChallenge:
		return "ACKNOWLEDGE_CHALLENGE"
	case ChooseResponse:
		return "CHOOSE_RESPONSE"
	case TakeMoveInApp:
		return "TAKE_MOVE_IN_APP"
	case InitiateResponse:
		return "INITIATE_RESPONSE"
	case WaitForResponseSubmission:
		return "WAIT_FOR_RESPONSE_SUBMISSION"
	case WaitForResponseConfirmation:
		return "WAIT_FOR_RESPONSE_CONFIRMATION"
	case AcknowledgeChallengeComplete:
		return "ACKNOWLEDGE_CHALLENGE_COMPLETE"
	case ResponseTransactionFailed:
		return "RESPONSE_TRANSACTION_FAILED"
	case AcknowledgeChallengeTimeout:
		return "ACKNOWLEDGE_CHALLENGE_TIMEOUT"
	case ApproveConclude:
		return "APPROVE_CONCLUDE"
	case WaitForOpponentConclude:
		return "WAIT_FOR_OPPONENT_CONCLUDE"
	case AcknowledgeConcludeSuccess:
		return "ACKNOWLEDGE_CONCLUDE_SUCCESS"
	case ApproveWithdrawal:
		return "APPROVE_WITHDRAWAL"
	case WaitForWithdrawalInitiation:
		return "WAIT_FOR_WITHDRAWAL_INITIATION"
	case WaitForWithdrawalConfirmation:
		return "WAIT_FOR_WITHDRAWAL_CONFIRMATION"
	case AcknowledgeWithdrawalSuccess:
		return "ACKNOWLEDGE_WITHDRAWAL_SUCCESS"
	case Closed:
		return "CLOSED"
	default:
		return "UNDEFINED_STAGE"
	}
}

// FundingStatus tracks the on-chain funding progress of the channel.
type FundingStatus struct {
	OurDeposit    uint64
	TotalRequired uint64
	Holdings      uint64
}

// ChannelStatus is the full wallet-side view of one channel for one
// participant. It is mutated exactly once per accepted event, by Reduce.
type ChannelStatus struct {
	Stage     Stage
	OurIndex  int
	ChannelID string
	Constants domain.ChannelConstants

	TurnNum             uint32
	LastPosition        *domain.SignedState
	PenultimatePosition *domain.SignedState

	Funding     FundingStatus
	Adjudicator string

	// ChallengeState is the on-chain challenge state while disputing.
	// ChallengeExpiry starts as an estimate from the latest block time and
	// is corrected by the ChallengeCreated event.
	ChallengeState  *domain.SignedState
	ChallengeExpiry int64

	// LatestBlockTime is the timestamp of the last mined block we saw.
	LatestBlockTime int64

	// PendingTx is the last transaction handed to the chain service, kept
	// so a failed submission can be retried without rebuilding it.
	PendingTx *ChainTransaction

	// Deferred holds at most one event that arrived before the machine
	// could consume it. It is replayed after the next stage change.
	Deferred Event

	FailureReason string
}

func (s ChannelStatus) participantCount() int {
	return len(s.Constants.Participants)
}

// ourTurn reports whether the next state in the channel is ours to produce.
func (s ChannelStatus) ourTurn() bool {
	if s.participantCount() == 0 {
		return false
	}
	return int(s.TurnNum+1)%s.participantCount() == s.OurIndex
}

func (s ChannelStatus) opponentAddress() string {
	for i, p := range s.Constants.Participants {
		if i != s.OurIndex {
			return p.SigningAddress
		}
	}
	return ""
}

func (s ChannelStatus) opponentID() string {
	for i, p := range s.Constants.Participants {
		if i != s.OurIndex {
			return p.ParticipantID
		}
	}
	return ""
}

// Terminal reports whether the channel record can be destroyed.
func (s ChannelStatus) Terminal() bool {
	return s.Stage == Closed
}

func (s ChannelStatus) ourDestination() string {
	return s.Constants.Participants[s.OurIndex].Destination
}

// ourDepositShare is the amount we owe the channel under the latest outcome.
func (s ChannelStatus) ourDepositShare() uint64 {
	if s.LastPosition == nil {
		return 0
	}
	amount, _ := depositShare(s.LastPosition.Outcome, s.ourDestination())
	return amount
}

// holdingsBeforeUs is the amount participants ahead of us in deposit order
// must have placed before it is safe for us to deposit.
func (s ChannelStatus) holdingsBeforeUs() uint64 {
	if s.LastPosition == nil {
		return 0
	}
	var total uint64
	for i, p := range s.Constants.Participants {
		if i >= s.OurIndex {
			break
		}
		amount, _ := depositShare(s.LastPosition.Outcome, p.Destination)
		total += amount
	}
	return total
}

func depositShare(outcome domain.Outcome, destination string) (uint64, bool) {
	switch o := outcome.(type) {
	case domain.SimpleAllocation:
		return o.AmountFor(destination)
	case domain.MixedAllocation:
		var total uint64
		found := false
		for _, a := range o.Allocations {
			if amount, ok := a.AmountFor(destination); ok {
				total += amount
				found = true
			}
		}
		return total, found
	default:
		return 0, false
	}
}
