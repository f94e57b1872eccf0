package wallet

import (
	"fmt"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// reduceOpening handles the pre-fund setup exchange. Each participant signs
// one setup state, in turn order, before anyone is asked to deposit.
func (w *Wallet) reduceOpening(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch status.Stage {
	case WaitForChannel:
		switch e := event.(type) {
		case OwnPositionReceived:
			return w.openFromOwnPosition(status, e.State)
		case OpponentPositionReceived:
			return w.openFromOpponentPosition(status, e.SignedState)
		}

	case WaitForPreFundSetup:
		switch e := event.(type) {
		case OwnPositionReceived:
			return w.advancePreFundSetup(status, e.State)
		case OpponentPositionReceived:
			if err := w.validateOpponentPosition(status, e.SignedState); err != nil {
				return anomaly(status, err)
			}
			status = recordPosition(status, e.SignedState)
			return preFundProgress(status)
		case FundingDeclinedReceived:
			return peerDeclinedFunding(status)
		case DepositedEvent:
			return deferEvent(status, event)
		}
	}
	return status, Outbox{}
}

// openFromOwnPosition initializes the channel from the setup state our own
// application produced. Only the first mover opens a channel this way.
func (w *Wallet) openFromOwnPosition(status ChannelStatus, state domain.State) (ChannelStatus, Outbox) {
	if err := state.Validate(); err != nil {
		return anomaly(status, err)
	}
	if state.TurnNum != 0 {
		return anomaly(status, fmt.Errorf("channel must open at turn 0, got %d", state.TurnNum))
	}
	ourIndex, ok := state.ParticipantIndex(w.address)
	if !ok {
		return anomaly(status, fmt.Errorf("we are not a participant of channel %s", state.ChannelID()))
	}
	if ourIndex != 0 {
		return anomaly(status, fmt.Errorf("participant %d cannot produce the opening state", ourIndex))
	}

	status.ChannelID = state.ChannelID()
	status.Constants = state.ChannelConstants
	status.OurIndex = ourIndex
	status.Funding.TotalRequired = domain.TotalAllocated(state.Outcome)

	status, ss, err := w.signPosition(status, state)
	if err != nil {
		return anomaly(status, err)
	}
	status.Stage = WaitForPreFundSetup
	var outbox Outbox
	outbox.Message = w.positionMessage(status, *ss)
	return status, outbox
}

// openFromOpponentPosition initializes the channel from the first mover's
// setup state arriving over the wire.
func (w *Wallet) openFromOpponentPosition(status ChannelStatus, ss domain.SignedState) (ChannelStatus, Outbox) {
	if err := ss.State.Validate(); err != nil {
		return anomaly(status, err)
	}
	if ss.TurnNum != 0 {
		return anomaly(status, fmt.Errorf("channel must open at turn 0, got %d", ss.TurnNum))
	}
	if !ss.SignedByMover() {
		return anomaly(status, fmt.Errorf("opening state is not signed by its mover"))
	}
	ourIndex, ok := ss.ParticipantIndex(w.address)
	if !ok {
		return anomaly(status, fmt.Errorf("we are not a participant of channel %s", ss.ChannelID()))
	}
	if ourIndex == 0 {
		return anomaly(status, fmt.Errorf("received our own opening state from the wire"))
	}

	status.ChannelID = ss.ChannelID()
	status.Constants = ss.ChannelConstants
	status.OurIndex = ourIndex
	status.Funding.TotalRequired = domain.TotalAllocated(ss.Outcome)
	status = recordPosition(status, ss)
	status.Stage = WaitForPreFundSetup
	return status, Outbox{}
}

// advancePreFundSetup signs and relays our setup state once the turn order
// reaches us.
func (w *Wallet) advancePreFundSetup(status ChannelStatus, state domain.State) (ChannelStatus, Outbox) {
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
	next, outbox := preFundProgress(status)
	outbox.Message = w.positionMessage(status, *ss)
	return next, outbox
}

// preFundProgress moves to the funding phase once every participant has
// produced its setup state, turns 0 through n-1.
func preFundProgress(status ChannelStatus) (ChannelStatus, Outbox) {
	if int(status.TurnNum) == status.participantCount()-1 {
		status.Stage = WaitForFundingRequest
	}
	return status, Outbox{}
}

func peerDeclinedFunding(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = AcknowledgeFundingDeclined
	status.FailureReason = "peer declined to fund the channel"
	var outbox Outbox
	outbox.report(FundingFailureReport, fmt.Sprintf("channel %s: %s", status.ChannelID, status.FailureReason))
	return status, outbox
}
