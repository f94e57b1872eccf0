package wallet

import (
	"errors"
	"fmt"
)

// reduceRunning handles the application phase: signed states flow in both
// directions, one turn at a time, until a dispute or a conclude interrupts.
func (w *Wallet) reduceRunning(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch e := event.(type) {
	case OwnPositionReceived:
		if e.State.IsFinal {
			return anomaly(status, fmt.Errorf("final states are produced by the conclude flow"))
		}
		if err := w.validateOwnPosition(status, e.State); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				status.Stage = ApproveConclude
				var outbox Outbox
				outbox.report(InsufficientFundsReport, fmt.Sprintf("channel %s: %s", status.ChannelID, err))
				return status, outbox
			}
			return anomaly(status, err)
		}
		status, ss, err := w.signPosition(status, e.State)
		if err != nil {
			return anomaly(status, err)
		}
		var outbox Outbox
		outbox.Message = w.positionMessage(status, *ss)
		return status, outbox

	case OpponentPositionReceived:
		if err := w.validateOpponentPosition(status, e.SignedState); err != nil {
			return anomaly(status, err)
		}
		status = recordPosition(status, e.SignedState)
		if e.SignedState.IsFinal {
			status.Stage = ApproveConclude
			var outbox Outbox
			outbox.report(ConcludeRequestedReport, fmt.Sprintf("channel %s: peer proposed to conclude", status.ChannelID))
			return status, outbox
		}
		return status, Outbox{}

	case ChallengeRequested:
		if status.ourTurn() {
			return anomaly(status, fmt.Errorf("cannot challenge while the next move is ours"))
		}
		if status.LastPosition == nil || status.PenultimatePosition == nil {
			return anomaly(status, fmt.Errorf("not enough positions to challenge with"))
		}
		status.Stage = ApproveChallenge
		return status, Outbox{}

	case ChallengeCreatedEvent:
		return w.onChallengeDetected(status, e)

	case ConcludeRequested:
		status.Stage = ApproveConclude
		return status, Outbox{}
	}
	return status, Outbox{}
}

// onChallengeDetected routes a chain challenge against us into the
// responder flow.
func (w *Wallet) onChallengeDetected(status ChannelStatus, e ChallengeCreatedEvent) (ChannelStatus, Outbox) {
	challenge := e.State
	status.ChallengeState = &challenge
	status.ChallengeExpiry = e.Expiry
	status.Stage = AcknowledgeChallenge
	var outbox Outbox
	outbox.report(ChallengeDetectedReport, fmt.Sprintf(
		"channel %s: challenge registered at turn %d, expires at %d",
		status.ChannelID, challenge.TurnNum, e.Expiry,
	))
	return status, outbox
}
