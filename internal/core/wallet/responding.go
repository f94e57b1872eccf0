package wallet

import (
	"fmt"
	"strings"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// reduceResponding drives our answer to a challenge the peer registered
// against us: refute with a later state, replay a move the peer ignored,
// or take a fresh move before the expiry.
func (w *Wallet) reduceResponding(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	if e, ok := event.(BlockMined); ok && respondingCanExpire(status.Stage) {
		if e.Timestamp >= status.ChallengeExpiry {
			return challengeExpired(status)
		}
		return status, Outbox{}
	}

	switch status.Stage {
	case AcknowledgeChallenge:
		switch event.(type) {
		case ChallengeAcknowledged:
			status.Stage = ChooseResponse
			var outbox Outbox
			outbox.report(ChallengeResponseRequestedReport, fmt.Sprintf(
				"channel %s: respond before %d, options: %s",
				status.ChannelID, status.ChallengeExpiry, strings.Join(w.ResponseOptions(status), ", "),
			))
			return status, outbox
		}

	case ChooseResponse:
		switch event.(type) {
		case RefuteChosen:
			return w.refuteChallenge(status)
		case RespondWithExistingMoveChosen:
			return w.respondWithExistingMove(status)
		case RespondWithMoveChosen:
			if !w.canRespondWithMove(status) {
				return anomaly(status, fmt.Errorf("the move after the challenged state is not ours"))
			}
			status.Stage = TakeMoveInApp
			return status, Outbox{}
		case ConcludeChosen:
			status.Stage = ApproveConclude
			return status, Outbox{}
		}

	case TakeMoveInApp:
		switch e := event.(type) {
		case ChallengePositionReceived:
			return w.respondWithMove(status, e.State)
		}

	case InitiateResponse:
		switch event.(type) {
		case TransactionSent:
			status.Stage = WaitForResponseSubmission
			return status, Outbox{}
		case TransactionSubmitted:
			status.Stage = WaitForResponseConfirmation
			return status, Outbox{}
		case TransactionSubmissionFailed:
			return responseTxFailed(status)
		}

	case WaitForResponseSubmission:
		switch event.(type) {
		case TransactionSubmitted:
			status.Stage = WaitForResponseConfirmation
			return status, Outbox{}
		case TransactionSubmissionFailed:
			return responseTxFailed(status)
		}

	case WaitForResponseConfirmation:
		switch event.(type) {
		case TransactionConfirmed:
			status.ChallengeState = nil
			status.ChallengeExpiry = 0
			status.PendingTx = nil
			status.Stage = AcknowledgeChallengeComplete
			var outbox Outbox
			outbox.report(ChallengeCompleteReport, fmt.Sprintf(
				"channel %s: challenge cleared at turn %d", status.ChannelID, status.TurnNum,
			))
			return status, outbox
		case TransactionSubmissionFailed:
			return responseTxFailed(status)
		}

	case AcknowledgeChallengeComplete:
		switch event.(type) {
		case ChallengeCompleteAcknowledged:
			status.Stage = Running
			return status, Outbox{}
		}

	case ResponseTransactionFailed:
		switch event.(type) {
		case RetryTransaction:
			status.Stage = InitiateResponse
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		}
	}
	return status, Outbox{}
}

func responseTxFailed(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = ResponseTransactionFailed
	status.FailureReason = "response transaction failed"
	var outbox Outbox
	outbox.report(ProtocolAnomalyReport, fmt.Sprintf("channel %s: response transaction failed", status.ChannelID))
	return status, outbox
}

func respondingCanExpire(stage Stage) bool {
	switch stage {
	case AcknowledgeChallenge, ChooseResponse, TakeMoveInApp, ResponseTransactionFailed:
		return true
	default:
		return false
	}
}

// ResponseOptions lists the ways the participant can answer the current
// challenge.
func (w *Wallet) ResponseOptions(status ChannelStatus) []string {
	options := []string{"Conclude"}
	if w.canRefute(status) {
		options = append(options, "Refute")
	}
	if w.canRespondWithExistingMove(status) {
		options = append(options, "RespondWithExistingMove")
	}
	if w.canRespondWithMove(status) {
		options = append(options, "RespondWithMove")
	}
	return options
}

// canRefute holds when we already have a signed state newer than the
// challenged one.
func (w *Wallet) canRefute(status ChannelStatus) bool {
	return status.ChallengeState != nil &&
		status.LastPosition != nil &&
		status.LastPosition.TurnNum > status.ChallengeState.TurnNum
}

// canRespondWithExistingMove holds when our latest position is exactly the
// move the challenge asks for.
func (w *Wallet) canRespondWithExistingMove(status ChannelStatus) bool {
	return status.ChallengeState != nil &&
		status.LastPosition != nil &&
		status.LastPosition.TurnNum == status.ChallengeState.TurnNum+1 &&
		status.LastPosition.MoverIndex() == status.OurIndex
}

// canRespondWithMove holds when the move after the challenged state is ours
// to take.
func (w *Wallet) canRespondWithMove(status ChannelStatus) bool {
	if status.ChallengeState == nil {
		return false
	}
	next := status.ChallengeState.State
	next.TurnNum++
	return next.MoverIndex() == status.OurIndex
}

func (w *Wallet) refuteChallenge(status ChannelStatus) (ChannelStatus, Outbox) {
	if !w.canRefute(status) {
		return anomaly(status, fmt.Errorf("no state newer than the challenged turn %d", challengedTurn(status)))
	}
	return emitResponse(status, &ChainTransaction{
		Type:      RefuteTx,
		ChannelID: status.ChannelID,
		States:    []domain.SignedState{*status.LastPosition},
	})
}

func (w *Wallet) respondWithExistingMove(status ChannelStatus) (ChannelStatus, Outbox) {
	if !w.canRespondWithExistingMove(status) {
		return anomaly(status, fmt.Errorf("no existing move answers the challenged turn %d", challengedTurn(status)))
	}
	return emitResponse(status, &ChainTransaction{
		Type:      RespondWithMoveTx,
		ChannelID: status.ChannelID,
		States:    []domain.SignedState{*status.LastPosition},
	})
}

// respondWithMove signs the fresh move the application took against the
// challenged state and submits it.
func (w *Wallet) respondWithMove(status ChannelStatus, state domain.State) (ChannelStatus, Outbox) {
	challenge := status.ChallengeState
	if state.ChannelID() != status.ChannelID {
		return anomaly(status, fmt.Errorf("state belongs to channel %s, not %s", state.ChannelID(), status.ChannelID))
	}
	if err := state.Validate(); err != nil {
		return anomaly(status, err)
	}
	if state.TurnNum != challenge.TurnNum+1 {
		return anomaly(status, fmt.Errorf("response must be turn %d, got %d", challenge.TurnNum+1, state.TurnNum))
	}
	if state.MoverIndex() != status.OurIndex {
		return anomaly(status, fmt.Errorf("turn %d is not ours to move", state.TurnNum))
	}
	if err := w.rules.ValidTransition(challenge.State, state); err != nil {
		return anomaly(status, err)
	}
	status, ss, err := w.signPosition(status, state)
	if err != nil {
		return anomaly(status, err)
	}
	next, outbox := emitResponse(status, &ChainTransaction{
		Type:      RespondWithMoveTx,
		ChannelID: status.ChannelID,
		States:    []domain.SignedState{*ss},
	})
	outbox.Message = w.positionMessage(status, *ss)
	return next, outbox
}

func emitResponse(status ChannelStatus, tx *ChainTransaction) (ChannelStatus, Outbox) {
	status.Stage = InitiateResponse
	status.PendingTx = tx
	var outbox Outbox
	outbox.Transaction = tx
	return status, outbox
}

func challengedTurn(status ChannelStatus) uint32 {
	if status.ChallengeState == nil {
		return 0
	}
	return status.ChallengeState.TurnNum
}

// reduceChallengeTimeout handles the shared terminal of both dispute paths:
// the chain finalized the outcome, the only move left is withdrawal.
func (w *Wallet) reduceChallengeTimeout(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch event.(type) {
	case ChallengeTimeoutAcknowledged:
		status.ChallengeState = nil
		status.PendingTx = nil
		status.Stage = ApproveWithdrawal
		return status, Outbox{}
	}
	return status, Outbox{}
}
