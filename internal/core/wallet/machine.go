package wallet

import (
	"fmt"
	"sync"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	log "github.com/sirupsen/logrus"
)

// Wallet drives the per-channel state machines for one participant. Events
// are applied strictly one at a time; each application returns the side
// effects to execute.
type Wallet struct {
	lock     sync.Mutex
	key      *secp256k1.PrivateKey
	address  string
	id       string
	rules    AppRules
	channels map[string]ChannelStatus
}

func NewWallet(participantID string, key *secp256k1.PrivateKey, rules AppRules) (*Wallet, error) {
	if key == nil {
		return nil, fmt.Errorf("missing signing key")
	}
	addr, err := domain.AddressFromPubKey(key.PubKey())
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing address: %s", err)
	}
	if rules == nil {
		rules = ConservationRules{}
	}
	return &Wallet{
		key:      key,
		address:  addr,
		id:       participantID,
		rules:    rules,
		channels: make(map[string]ChannelStatus),
	}, nil
}

func (w *Wallet) Address() string {
	return w.address
}

// Channel returns a snapshot of the channel record.
func (w *Wallet) Channel(channelID string) (ChannelStatus, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	status, ok := w.channels[channelID]
	return status, ok
}

// Dispatch applies one event to the channel, replaying at most one deferred
// event after each stage change. Closed channels are destroyed.
func (w *Wallet) Dispatch(channelID string, event Event) (ChannelStatus, Outbox) {
	w.lock.Lock()
	defer w.lock.Unlock()

	status, ok := w.channels[channelID]
	if !ok {
		status = ChannelStatus{Stage: WaitForChannel, ChannelID: channelID}
	}

	next, outbox := w.reduce(status, event)
	for next.Stage != status.Stage && next.Deferred != nil {
		deferred := next.Deferred
		next.Deferred = nil
		status = next
		var deferredOutbox Outbox
		next, deferredOutbox = w.reduce(status, deferred)
		outbox = outbox.merge(deferredOutbox)
	}

	if next.Terminal() {
		delete(w.channels, channelID)
	} else {
		w.channels[channelID] = next
	}
	return next, outbox
}

func (w *Wallet) reduce(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	logEvent(status, event)
	if e, ok := event.(BlockMined); ok && e.Timestamp > status.LatestBlockTime {
		status.LatestBlockTime = e.Timestamp
	}
	switch {
	case status.Stage <= WaitForPreFundSetup:
		return w.reduceOpening(status, event)
	case status.Stage <= DepositTransactionFailed:
		return w.reduceFunding(status, event)
	case status.Stage == Running:
		return w.reduceRunning(status, event)
	case status.Stage <= ChallengeTransactionFailed:
		return w.reduceChallenging(status, event)
	case status.Stage <= ResponseTransactionFailed:
		return w.reduceResponding(status, event)
	case status.Stage == AcknowledgeChallengeTimeout:
		return w.reduceChallengeTimeout(status, event)
	case status.Stage <= AcknowledgeConcludeSuccess:
		return w.reduceClosing(status, event)
	case status.Stage <= AcknowledgeWithdrawalSuccess:
		return w.reduceWithdrawing(status, event)
	default:
		return status, Outbox{}
	}
}

func logEvent(status ChannelStatus, event Event) {
	log.WithFields(log.Fields{
		"channel": status.ChannelID,
		"stage":   status.Stage.String(),
		"event":   fmt.Sprintf("%T", event),
	}).Debug("applying channel event")
}

// deferEvent parks an event that arrived ahead of the stage able to consume
// it. The slot holds one event; a second arrival is a protocol anomaly and
// is dropped.
func deferEvent(status ChannelStatus, event Event) (ChannelStatus, Outbox) {
	var outbox Outbox
	if status.Deferred != nil {
		outbox.report(ProtocolAnomalyReport, fmt.Sprintf(
			"dropped %T for channel %s: an event is already deferred", event, status.ChannelID,
		))
		log.WithField("channel", status.ChannelID).Warnf("deferred slot full, dropping %T", event)
		return status, outbox
	}
	status.Deferred = event
	return status, outbox
}

// signPosition signs a state we produced and records it as the latest
// position.
func (w *Wallet) signPosition(status ChannelStatus, state domain.State) (ChannelStatus, *domain.SignedState, error) {
	entry, err := domain.SignState(state, w.key)
	if err != nil {
		return status, nil, err
	}
	ss := domain.NewSignedState(state)
	if err := ss.AddSignature(*entry); err != nil {
		return status, nil, err
	}
	status = recordPosition(status, ss)
	return status, &ss, nil
}

func recordPosition(status ChannelStatus, ss domain.SignedState) ChannelStatus {
	status.PenultimatePosition = status.LastPosition
	status.LastPosition = &ss
	status.TurnNum = ss.TurnNum
	return status
}

// validateOwnPosition checks a state handed to us by the local application
// before we sign it.
func (w *Wallet) validateOwnPosition(status ChannelStatus, state domain.State) error {
	if state.ChannelID() != status.ChannelID {
		return fmt.Errorf("state belongs to channel %s, not %s", state.ChannelID(), status.ChannelID)
	}
	if err := state.Validate(); err != nil {
		return err
	}
	if state.TurnNum != status.TurnNum+1 {
		return fmt.Errorf("expected turn %d, got %d", status.TurnNum+1, state.TurnNum)
	}
	if state.MoverIndex() != status.OurIndex {
		return fmt.Errorf("turn %d is not ours to move", state.TurnNum)
	}
	if status.LastPosition != nil {
		return w.rules.ValidTransition(status.LastPosition.State, state)
	}
	return nil
}

// validateOpponentPosition checks a signed state arriving from the peer.
func (w *Wallet) validateOpponentPosition(status ChannelStatus, ss domain.SignedState) error {
	if ss.ChannelID() != status.ChannelID {
		return fmt.Errorf("state belongs to channel %s, not %s", ss.ChannelID(), status.ChannelID)
	}
	if err := ss.State.Validate(); err != nil {
		return err
	}
	if ss.TurnNum != status.TurnNum+1 {
		return fmt.Errorf("expected turn %d, got %d", status.TurnNum+1, ss.TurnNum)
	}
	if ss.MoverIndex() == status.OurIndex {
		return fmt.Errorf("turn %d is ours, not the peer's", ss.TurnNum)
	}
	if !ss.SignedByMover() {
		return fmt.Errorf("state for turn %d is not signed by its mover", ss.TurnNum)
	}
	if status.LastPosition != nil {
		return w.rules.ValidTransition(status.LastPosition.State, ss.State)
	}
	return nil
}

// positionMessage wraps a signed state for relay to the peer.
func (w *Wallet) positionMessage(status ChannelStatus, ss domain.SignedState) *domain.Message {
	return &domain.Message{
		Sender:    w.id,
		Recipient: status.opponentID(),
		Data: domain.Payload{
			SignedStates: []domain.SignedStateWire{domain.SerializeSignedState(ss)},
		},
	}
}

func (w *Wallet) objectiveMessage(status ChannelStatus, objectiveType string) *domain.Message {
	return &domain.Message{
		Sender:    w.id,
		Recipient: status.opponentID(),
		Data: domain.Payload{
			Objectives: []domain.Objective{{
				Type: objectiveType,
				Data: domain.ObjectiveData{TargetChannelID: status.ChannelID},
			}},
		},
	}
}

func anomaly(status ChannelStatus, err error) (ChannelStatus, Outbox) {
	var outbox Outbox
	outbox.report(ProtocolAnomalyReport, fmt.Sprintf("channel %s: %s", status.ChannelID, err))
	log.WithError(err).WithField("channel", status.ChannelID).Warn("rejected channel event")
	return status, outbox
}
