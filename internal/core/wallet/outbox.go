package wallet

import "github.com/channelforge/forcemove/internal/core/domain"

// TxType enumerates the adjudicator calls the wallet may request.
type TxType int

const (
	DepositTx TxType = iota
	ForceMoveTx
	RespondWithMoveTx
	RefuteTx
	ConcludeTx
	WithdrawTx
)

func (t TxType) String() string {
	switch t {
	case DepositTx:
		return "DEPOSIT"
	case ForceMoveTx:
		return "FORCE_MOVE"
	case RespondWithMoveTx:
		return "RESPOND_WITH_MOVE"
	case RefuteTx:
		return "REFUTE"
	case ConcludeTx:
		return "CONCLUDE"
	case WithdrawTx:
		return "WITHDRAW"
	default:
		return "UNDEFINED"
	}
}

// ChainTransaction is a transaction the wallet wants submitted on chain.
type ChainTransaction struct {
	Type      TxType
	ChannelID string
	// States carries the signed states backing the call: the challenge or
	// response state, or the conclude pair.
	States []domain.SignedState
	// Amount and ExpectedHeld parameterize deposits.
	Amount       uint64
	ExpectedHeld uint64
	// Destination parameterizes withdrawals.
	Destination string
}

// ReportType enumerates the statuses surfaced to the application layer.
type ReportType int

const (
	FundingFailureReport ReportType = iota
	FundingSuccessReport
	ChallengeDetectedReport
	ChallengeResponseRequestedReport
	ChallengeCompleteReport
	ChallengeExpiredReport
	ConcludeRequestedReport
	InsufficientFundsReport
	ProtocolAnomalyReport
	ChannelClosedReport
)

func (t ReportType) String() string {
	switch t {
	case FundingFailureReport:
		return "FUNDING_FAILURE"
	case FundingSuccessReport:
		return "FUNDING_SUCCESS"
	case ChallengeDetectedReport:
		return "CHALLENGE_DETECTED"
	case ChallengeResponseRequestedReport:
		return "CHALLENGE_RESPONSE_REQUESTED"
	case ChallengeCompleteReport:
		return "CHALLENGE_COMPLETE"
	case ChallengeExpiredReport:
		return "CHALLENGE_EXPIRED"
	case ConcludeRequestedReport:
		return "CONCLUDE_REQUESTED"
	case InsufficientFundsReport:
		return "INSUFFICIENT_FUNDS"
	case ProtocolAnomalyReport:
		return "PROTOCOL_ANOMALY"
	case ChannelClosedReport:
		return "CHANNEL_CLOSED"
	default:
		return "UNDEFINED"
	}
}

// Report is a user-visible status change.
type Report struct {
	Type    ReportType
	Message string
}

// Outbox carries the side effects of one reduction: at most one message to
// relay, at most one transaction to submit, plus any status reports. The
// caller consumes and clears it.
type Outbox struct {
	Message     *domain.Message
	Transaction *ChainTransaction
	Reports     []Report
}

func (o *Outbox) report(t ReportType, msg string) {
	o.Reports = append(o.Reports, Report{Type: t, Message: msg})
}

func (o Outbox) merge(other Outbox) Outbox {
	merged := o
	if other.Message != nil {
		merged.Message = other.Message
	}
	if other.Transaction != nil {
		merged.Transaction = other.Transaction
	}
	merged.Reports = append(merged.Reports, other.Reports...)
	return merged
}
