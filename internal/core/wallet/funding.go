package wallet

import (
	"fmt"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// reduceFunding walks a channel from an agreed pre-fund setup to a fully
// deposited adjudicator. Participants deposit strictly in index order: each
// waits until the holdings cover everyone ahead of it before sending its
// own deposit.
func (w *Wallet) reduceFunding(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch status.Stage {
	case WaitForFundingRequest:
		switch event.(type) {
		case FundingRequested:
			status.Stage = ApproveFunding
			return status, Outbox{}
		case FundingDeclinedReceived:
			return peerDeclinedFunding(status)
		case DepositedEvent, OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case ApproveFunding:
		switch event.(type) {
		case FundingApproved:
			return w.startDepositing(status)
		case FundingRejected:
			return w.declineFunding(status)
		case FundingDeclinedReceived:
			return peerDeclinedFunding(status)
		case DepositedEvent, OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case WaitForPeerDeposit:
		switch e := event.(type) {
		case DepositedEvent:
			return w.onPeerDeposit(status, e)
		case FundingDeclinedReceived:
			return peerDeclinedFunding(status)
		case OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case WaitForDepositInitiation:
		switch event.(type) {
		case TransactionSent:
			status.Stage = WaitForDepositSubmission
			return status, Outbox{}
		case DepositedEvent, OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case WaitForDepositSubmission:
		switch event.(type) {
		case TransactionSubmitted:
			status.Stage = WaitForDepositConfirmation
			return status, Outbox{}
		case TransactionSubmissionFailed:
			return depositFailed(status)
		case DepositedEvent, OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case WaitForDepositConfirmation:
		switch e := event.(type) {
		case DepositedEvent:
			status.Funding.Holdings = e.TotalHoldings
			status.Funding.OurDeposit += e.AmountDeposited
			status.PendingTx = nil
			return fundingProgress(status)
		case TransactionSubmissionFailed:
			return depositFailed(status)
		case OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case WaitForFundingConfirmation:
		switch e := event.(type) {
		case DepositedEvent:
			status.Funding.Holdings = e.TotalHoldings
			return fundingProgress(status)
		case OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case DepositTransactionFailed:
		switch event.(type) {
		case RetryTransaction:
			status.Stage = WaitForDepositInitiation
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		case FundingDeclinedReceived:
			return peerDeclinedFunding(status)
		}

	case WaitForPostFundSetup:
		switch e := event.(type) {
		case OwnPositionReceived:
			return w.advancePostFundSetup(status, e.State)
		case OpponentPositionReceived:
			if err := w.validateOpponentPosition(status, e.SignedState); err != nil {
				return anomaly(status, err)
			}
			status = recordPosition(status, e.SignedState)
			return postFundProgress(status)
		}

	case AcknowledgeFundingSuccess:
		switch event.(type) {
		case FundingSuccessAcknowledged:
			status.Stage = Running
			return status, Outbox{}
		case OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case AcknowledgeFundingDeclined:
		switch event.(type) {
		case FundingDeclinedAcknowledged:
			status.Stage = Closed
			return status, Outbox{}
		case TryFundingAgain:
			status.Stage = ApproveFunding
			status.FailureReason = ""
			return status, Outbox{}
		}
	}
	return status, Outbox{}
}

// startDepositing either submits our deposit right away or waits for the
// participants ahead of us to deposit first.
func (w *Wallet) startDepositing(status ChannelStatus) (ChannelStatus, Outbox) {
	required := status.holdingsBeforeUs()
	if status.Funding.Holdings < required {
		status.Stage = WaitForPeerDeposit
		return status, Outbox{}
	}
	return w.submitDeposit(status)
}

func (w *Wallet) onPeerDeposit(status ChannelStatus, e DepositedEvent) (ChannelStatus, Outbox) {
	status.Funding.Holdings = e.TotalHoldings
	if status.Funding.Holdings < status.holdingsBeforeUs() {
		return status, Outbox{}
	}
	return w.submitDeposit(status)
}

func (w *Wallet) submitDeposit(status ChannelStatus) (ChannelStatus, Outbox) {
	share := status.ourDepositShare()
	if share == 0 {
		status.Stage = WaitForFundingConfirmation
		return fundingProgress(status)
	}
	status.Stage = WaitForDepositInitiation
	status.PendingTx = &ChainTransaction{
		Type:         DepositTx,
		ChannelID:    status.ChannelID,
		Amount:       share,
		ExpectedHeld: status.Funding.Holdings,
	}
	var outbox Outbox
	outbox.Transaction = status.PendingTx
	return status, outbox
}

// fundingProgress moves to the post-fund exchange once the adjudicator
// holds the full channel total.
func fundingProgress(status ChannelStatus) (ChannelStatus, Outbox) {
	if status.Funding.Holdings >= status.Funding.TotalRequired {
		status.Stage = WaitForPostFundSetup
	} else {
		status.Stage = WaitForFundingConfirmation
	}
	return status, Outbox{}
}

func depositFailed(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = DepositTransactionFailed
	status.FailureReason = "deposit transaction failed"
	var outbox Outbox
	outbox.report(FundingFailureReport, fmt.Sprintf("channel %s: deposit transaction failed", status.ChannelID))
	return status, outbox
}

func (w *Wallet) declineFunding(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = AcknowledgeFundingDeclined
	status.FailureReason = "funding rejected by user"
	var outbox Outbox
	outbox.Message = w.objectiveMessage(status, domain.CloseChannelObjective)
	outbox.report(FundingFailureReport, fmt.Sprintf("channel %s: funding rejected by user", status.ChannelID))
	return status, outbox
}

// advancePostFundSetup signs and relays our post-fund state, turns n
// through 2n-1.
func (w *Wallet) advancePostFundSetup(status ChannelStatus, state domain.State) (ChannelStatus, Outbox) {
	if err := w.validateOwnPosition(status, state); err != nil {
		return anomaly(status, err)
	}
	if state.IsFinal {
		return anomaly(status, fmt.Errorf("setup states cannot be final"))
	}
	status, ss, err := w.signPosition(status, state)
	if err != nil {
		return anomaly(status, err)
	}
	next, outbox := postFundProgress(status)
	outbox.Message = w.positionMessage(status, *ss)
	return next, outbox
}

// postFundProgress completes funding once every participant has produced
// its post-fund state.
func postFundProgress(status ChannelStatus) (ChannelStatus, Outbox) {
	var outbox Outbox
	if int(status.TurnNum) == 2*status.participantCount()-1 {
		status.Stage = AcknowledgeFundingSuccess
		outbox.report(FundingSuccessReport, fmt.Sprintf("channel %s is fully funded", status.ChannelID))
	}
	return status, outbox
}
