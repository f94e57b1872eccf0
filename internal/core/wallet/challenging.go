package wallet

import (
	"fmt"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// reduceChallenging drives a challenge we registered: force the peer to
// move on chain or collect the channel at expiry.
func (w *Wallet) reduceChallenging(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch status.Stage {
	case ApproveChallenge:
		switch e := event.(type) {
		case ChallengeApproved:
			return w.submitChallenge(status)
		case ChallengeRejected:
			status.Stage = Running
			return status, Outbox{}
		case OpponentPositionReceived:
			// The peer moved after all, no challenge needed.
			if err := w.validateOpponentPosition(status, e.SignedState); err != nil {
				return anomaly(status, err)
			}
			status = recordPosition(status, e.SignedState)
			status.Stage = Running
			return status, Outbox{}
		}

	case WaitForChallengeSubmission:
		switch event.(type) {
		case TransactionSent:
			return status, Outbox{}
		case TransactionSubmitted:
			status.Stage = WaitForChallengeConfirmation
			return status, Outbox{}
		case TransactionSubmissionFailed:
			return challengeTxFailed(status)
		}

	case WaitForChallengeConfirmation:
		switch e := event.(type) {
		case ChallengeCreatedEvent:
			challenge := e.State
			status.ChallengeState = &challenge
			status.ChallengeExpiry = e.Expiry
			status.PendingTx = nil
			status.Stage = WaitForResponseOrTimeout
			return status, Outbox{}
		case BlockMined:
			if status.ChallengeExpiry > 0 && e.Timestamp >= status.ChallengeExpiry {
				return challengeExpired(status)
			}
			return status, Outbox{}
		case TransactionSubmissionFailed:
			return challengeTxFailed(status)
		}

	case WaitForResponseOrTimeout:
		switch e := event.(type) {
		case ChallengeResponseReceived:
			return w.onChallengeResponse(status, e.SignedState)
		case BlockMined:
			if e.Timestamp >= status.ChallengeExpiry {
				return challengeExpired(status)
			}
			return status, Outbox{}
		}

	case AcknowledgeChallengeResponse:
		switch event.(type) {
		case ChallengeResponseAcknowledged:
			status.ChallengeState = nil
			status.ChallengeExpiry = 0
			status.Stage = Running
			return status, Outbox{}
		}

	case ChallengeTransactionFailed:
		switch event.(type) {
		case RetryTransaction:
			status.Stage = WaitForChallengeSubmission
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		case ChallengeRejected:
			status.Stage = Running
			status.FailureReason = ""
			return status, Outbox{}
		}
	}
	return status, Outbox{}
}

// submitChallenge registers our latest supported position pair on chain.
// The expiry is estimated from the latest block time until the
// ChallengeCreated event reports the real deadline.
func (w *Wallet) submitChallenge(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = WaitForChallengeSubmission
	status.ChallengeExpiry = status.LatestBlockTime + int64(status.Constants.ChallengeDuration)
	status.PendingTx = &ChainTransaction{
		Type:      ForceMoveTx,
		ChannelID: status.ChannelID,
		States:    []domain.SignedState{*status.PenultimatePosition, *status.LastPosition},
	}
	var outbox Outbox
	outbox.Transaction = status.PendingTx
	return status, outbox
}

// onChallengeResponse accepts the peer's on-chain answer to our challenge.
// The response must advance the challenged turn by one.
func (w *Wallet) onChallengeResponse(status ChannelStatus, ss domain.SignedState) (ChannelStatus, Outbox) {
	if err := w.validateOpponentPosition(status, ss); err != nil {
		return anomaly(status, err)
	}
	status = recordPosition(status, ss)
	status.Stage = AcknowledgeChallengeResponse
	var outbox Outbox
	outbox.report(ChallengeCompleteReport, fmt.Sprintf(
		"channel %s: peer responded to the challenge at turn %d", status.ChannelID, ss.TurnNum,
	))
	return status, outbox
}

func challengeExpired(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = AcknowledgeChallengeTimeout
	var outbox Outbox
	outbox.report(ChallengeExpiredReport, fmt.Sprintf(
		"channel %s: challenge expired, outcome finalized at turn %d", status.ChannelID, status.TurnNum,
	))
	return status, outbox
}

func challengeTxFailed(status ChannelStatus) (ChannelStatus, Outbox) {
	status.Stage = ChallengeTransactionFailed
	status.FailureReason = "challenge transaction failed"
	var outbox Outbox
	outbox.report(ProtocolAnomalyReport, fmt.Sprintf("channel %s: challenge transaction failed", status.ChannelID))
	return status, outbox
}
