package wallet

import "fmt"

// reduceWithdrawing moves the participant's share of a finalized channel
// out of the adjudicator.
func (w *Wallet) reduceWithdrawing(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	switch status.Stage {
	case ApproveWithdrawal:
		switch e := event.(type) {
		case WithdrawalApproved:
			destination := e.Destination
			if destination == "" {
				destination = status.ourDestination()
			}
			status.Stage = WaitForWithdrawalInitiation
			status.PendingTx = &ChainTransaction{
				Type:        WithdrawTx,
				ChannelID:   status.ChannelID,
				Amount:      status.ourDepositShare(),
				Destination: destination,
			}
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		}

	case WaitForWithdrawalInitiation:
		switch event.(type) {
		case TransactionSent:
			status.Stage = WaitForWithdrawalConfirmation
			return status, Outbox{}
		case TransactionSubmitted:
			status.Stage = WaitForWithdrawalConfirmation
			return status, Outbox{}
		case TransactionSubmissionFailed:
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		}

	case WaitForWithdrawalConfirmation:
		switch event.(type) {
		case TransactionConfirmed:
			status.PendingTx = nil
			status.Stage = AcknowledgeWithdrawalSuccess
			var outbox Outbox
			outbox.report(ChannelClosedReport, fmt.Sprintf(
				"channel %s: funds withdrawn, channel closed", status.ChannelID,
			))
			return status, outbox
		case TransactionSubmissionFailed:
			var outbox Outbox
			outbox.Transaction = status.PendingTx
			return status, outbox
		}

	case AcknowledgeWithdrawalSuccess:
		switch event.(type) {
		case WithdrawalSuccessAcknowledged:
			status.Stage = Closed
			return status, Outbox{}
		}
	}
	return status, Outbox{}
}
