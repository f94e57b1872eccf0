package wallet

import (
	"fmt"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// reduceClosing drives the cooperative shutdown: each participant signs a
// final state, the pair is registered on chain, and the adjudicator
// concludes the channel.
func (w *Wallet) reduceClosing(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch status.Stage {
	case ApproveConclude:
		switch event.(type) {
		case ConcludeApproved:
			return w.startConclude(status)
		case OpponentPositionReceived:
			return deferEvent(status, event)
		}

	case WaitForOpponentConclude:
		switch e := event.(type) {
		case OpponentPositionReceived:
			return w.onOpponentFinal(status, e.SignedState)
		case ConcludedEvent:
			status.PendingTx = nil
			status.Stage = AcknowledgeConcludeSuccess
			return status, Outbox{}
		case TransactionSubmissionFailed:
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		}

	case AcknowledgeConcludeSuccess:
		switch event.(type) {
		case CloseSuccessAcknowledged:
			status.Stage = ApproveWithdrawal
			return status, Outbox{}
		}
	}
	return status, Outbox{}
}

// startConclude signs our final state if the turn order allows it, then
// waits for the peer's.
func (w *Wallet) startConclude(status ChannelStatus) (ChannelStatus, Outbox) {
	if status.LastPosition == nil {
		return anomaly(status, fmt.Errorf("no position to conclude from"))
	}
	if !status.ourTurn() {
		status.Stage = WaitForOpponentConclude
		var outbox Outbox
		outbox.Message = w.objectiveMessage(status, domain.CloseChannelObjective)
		return status, outbox
	}

	status, ss, err := w.signPosition(status, finalState(status))
	if err != nil {
		return anomaly(status, err)
	}
	status.Stage = WaitForOpponentConclude
	var outbox Outbox
	outbox.Message = w.positionMessage(status, *ss)
	if bothFinal(status) {
		outbox.Transaction = concludeTx(&status)
	}
	return status, outbox
}

// onOpponentFinal records the peer's final state, produces ours if still
// missing, and submits the conclude proof once both are held.
func (w *Wallet) onOpponentFinal(status ChannelStatus, ss domain.SignedState) (ChannelStatus, Outbox) {
	if !ss.IsFinal {
		return anomaly(status, fmt.Errorf("expected a final state, got turn %d", ss.TurnNum))
	}
	if err := w.validateOpponentPosition(status, ss); err != nil {
		return anomaly(status, err)
	}
	status = recordPosition(status, ss)

	var outbox Outbox
	if !bothFinal(status) {
		var ours *domain.SignedState
		var err error
		status, ours, err = w.signPosition(status, finalState(status))
		if err != nil {
			return anomaly(status, err)
		}
		outbox.Message = w.positionMessage(status, *ours)
	}
	outbox.Transaction = concludeTx(&status)
	return status, outbox
}

// finalState derives our conclude state: the latest agreed variables, one
// turn later, marked final.
func finalState(status ChannelStatus) domain.State {
	state := status.LastPosition.State
	state.TurnNum++
	state.IsFinal = true
	return state
}

func bothFinal(status ChannelStatus) bool {
	return status.LastPosition != nil && status.LastPosition.IsFinal &&
		status.PenultimatePosition != nil && status.PenultimatePosition.IsFinal
}

func concludeTx(status *ChannelStatus) *ChainTransaction {
	status.PendingTx = &ChainTransaction{
		Type:      ConcludeTx,
		ChannelID: status.ChannelID,
		States:    []domain.SignedState{*status.PenultimatePosition, *status.LastPosition},
	}
	return status.PendingTx
}
