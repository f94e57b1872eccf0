package wallet

import "github.com/channelforge/forcemove/internal/core/domain"

// Event is one input to the channel state machine: a message, a chain
// event, a user command or a timer tick. Events for a channel are applied
// strictly one at a time.
type Event interface {
	isEvent()
}

func (e OwnPositionReceived) isEvent()            {}
func (e OpponentPositionReceived) isEvent()       {}
func (e FundingRequested) isEvent()               {}
func (e FundingApproved) isEvent()                {}
func (e FundingRejected) isEvent()                {}
func (e FundingDeclinedReceived) isEvent()        {}
func (e FundingDeclinedAcknowledged) isEvent()    {}
func (e FundingSuccessAcknowledged) isEvent()     {}
func (e TryFundingAgain) isEvent()                {}
func (e TransactionSent) isEvent()                {}
func (e TransactionSubmitted) isEvent()           {}
func (e TransactionSubmissionFailed) isEvent()    {}
func (e TransactionConfirmed) isEvent()           {}
func (e RetryTransaction) isEvent()               {}
func (e DepositedEvent) isEvent()                 {}
func (e ChallengeCreatedEvent) isEvent()          {}
func (e ConcludedEvent) isEvent()                 {}
func (e BlockMined) isEvent()                     {}
func (e ChallengeRequested) isEvent()             {}
func (e ChallengeApproved) isEvent()              {}
func (e ChallengeRejected) isEvent()              {}
func (e ChallengeAcknowledged) isEvent()          {}
func (e ChallengeResponseReceived) isEvent()      {}
func (e ChallengeResponseAcknowledged) isEvent()  {}
func (e RespondWithMoveChosen) isEvent()          {}
func (e RespondWithExistingMoveChosen) isEvent()  {}
func (e RefuteChosen) isEvent()                   {}
func (e ConcludeChosen) isEvent()                 {}
func (e ChallengePositionReceived) isEvent()      {}
func (e ChallengeCompleteAcknowledged) isEvent()  {}
func (e ChallengeTimeoutAcknowledged) isEvent()   {}
func (e ConcludeRequested) isEvent()              {}
func (e ConcludeApproved) isEvent()               {}
func (e CloseSuccessAcknowledged) isEvent()       {}
func (e WithdrawalApproved) isEvent()             {}
func (e WithdrawalSuccessAcknowledged) isEvent()  {}

// OwnPositionReceived carries a state produced by the local application,
// to be signed and relayed if it advances the channel by exactly one turn.
type OwnPositionReceived struct {
	State domain.State
}

// OpponentPositionReceived carries a signed state arriving from the peer.
type OpponentPositionReceived struct {
	SignedState domain.SignedState
}

type FundingRequested struct{}

type FundingApproved struct{}

type FundingRejected struct{}

// FundingDeclinedReceived signals the peer rejected funding the channel.
type FundingDeclinedReceived struct{}

type FundingDeclinedAcknowledged struct{}

type FundingSuccessAcknowledged struct{}

// TryFundingAgain is the explicit user retry after a FundingFailure.
type TryFundingAgain struct{}

type TransactionSent struct{}

type TransactionSubmitted struct {
	TxID string
}

type TransactionSubmissionFailed struct{}

type TransactionConfirmed struct{}

type RetryTransaction struct{}

// DepositedEvent is the adjudicator's Deposited event.
type DepositedEvent struct {
	ChannelID       string
	AmountDeposited uint64
	TotalHoldings   uint64
}

// ChallengeCreatedEvent is the adjudicator's ChallengeCreated event.
type ChallengeCreatedEvent struct {
	ChannelID string
	State     domain.SignedState
	Expiry    int64
}

// ConcludedEvent is the adjudicator's Concluded event.
type ConcludedEvent struct {
	ChannelID string
}

// BlockMined drives expiry checks against the chain clock.
type BlockMined struct {
	Timestamp int64
}

type ChallengeRequested struct{}

type ChallengeApproved struct{}

type ChallengeRejected struct{}

type ChallengeAcknowledged struct{}

// ChallengeResponseReceived signals the peer answered our challenge on
// chain with the given state.
type ChallengeResponseReceived struct {
	SignedState domain.SignedState
}

type ChallengeResponseAcknowledged struct{}

type RespondWithMoveChosen struct{}

type RespondWithExistingMoveChosen struct{}

type RefuteChosen struct{}

type ConcludeChosen struct{}

// ChallengePositionReceived carries the application's move taken to answer
// a challenge.
type ChallengePositionReceived struct {
	State domain.State
}

type ChallengeCompleteAcknowledged struct{}

type ChallengeTimeoutAcknowledged struct{}

type ConcludeRequested struct{}

type ConcludeApproved struct{}

type CloseSuccessAcknowledged struct{}

type WithdrawalApproved struct {
	Destination string
}

type WithdrawalSuccessAcknowledged struct{}
