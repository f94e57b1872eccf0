package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/ports"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrUnsupportedConfig rejects channels the hub will not fund: anything
// other than a bilateral channel with the hub in allocation position 0.
var ErrUnsupportedConfig = errors.New("unsupported channel configuration")

type Service interface {
	Start() error
	Stop()
	HandleMessage(ctx context.Context, msg domain.Message) error
	GetChannel(ctx context.Context, channelID string) (*domain.ChannelRecord, error)
	GetAddress(ctx context.Context) (string, error)
}

type service struct {
	key           *secp256k1.PrivateKey
	address       string
	destination   string
	id            string
	sweepInterval int64

	chain       ports.ChainService
	msg         ports.MsgService
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService

	// depositLock serializes every deposit decision for the hub's chain
	// account, across all channels. depositInFlight names the channel whose
	// deposit is awaiting its chain confirmation; no other deposit is
	// submitted until the Deposited event clears it.
	depositLock     sync.Mutex
	depositInFlight string
}

func NewService(
	hubID string, key *secp256k1.PrivateKey, sweepInterval int64,
	chainSvc ports.ChainService, msgSvc ports.MsgService,
	repoManager ports.RepoManager, schedulerSvc ports.SchedulerService,
) (Service, error) {
	if key == nil {
		return nil, fmt.Errorf("missing hub signing key")
	}
	address, err := domain.AddressFromPubKey(key.PubKey())
	if err != nil {
		return nil, fmt.Errorf("failed to derive hub address: %s", err)
	}
	destination, err := domain.DestinationFromAddress(address)
	if err != nil {
		return nil, fmt.Errorf("failed to derive hub destination: %s", err)
	}
	svc := &service{
		key:           key,
		address:       address,
		destination:   destination,
		id:            hubID,
		sweepInterval: sweepInterval,
		chain:         chainSvc,
		msg:           msgSvc,
		repoManager:   repoManager,
		scheduler:     schedulerSvc,
	}
	go svc.listenToChainEvents()
	return svc, nil
}

func (s *service) Start() error {
	log.Debug("starting hub service")
	if err := s.scheduler.ScheduleTask(
		s.sweepInterval, false, s.sweepExpiredChallenges,
	); err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

func (s *service) Stop() {
	s.scheduler.Stop()
	log.Debug("stopped scheduler")
	s.chain.Close()
	log.Debug("closed connection to chain")
	s.msg.Close()
	log.Debug("closed message service")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) GetAddress(ctx context.Context) (string, error) {
	return s.address, nil
}

func (s *service) GetChannel(ctx context.Context, channelID string) (*domain.ChannelRecord, error) {
	return s.repoManager.Channels().GetChannel(ctx, channelID)
}

// HandleMessage queues an inbound wire message, processes it, and acks it
// only once co-signing, fan-out and deposits all succeeded. Replays of an
// already processed message are no-ops.
func (s *service) HandleMessage(ctx context.Context, msg domain.Message) error {
	digest, err := messageDigest(msg)
	if err != nil {
		return fmt.Errorf("failed to hash message: %s", err)
	}
	processed, err := s.repoManager.Messages().WasProcessed(ctx, digest)
	if err != nil {
		return err
	}
	if processed {
		log.WithField("sender", msg.Sender).Debug("skipping already processed message")
		return nil
	}

	queued := domain.QueuedMessage{
		ID:        uuid.NewString(),
		Recipient: msg.Recipient,
		Message:   msg,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.repoManager.Messages().Push(ctx, queued); err != nil {
		return fmt.Errorf("failed to queue message: %s", err)
	}

	if err := s.processMessage(ctx, msg); err != nil {
		return err
	}

	if err := s.repoManager.Messages().MarkProcessed(ctx, digest); err != nil {
		return err
	}
	return s.repoManager.Messages().Ack(ctx, queued.ID)
}

// processMessage co-signs every state the hub participates in, relays the
// payload to each other participant, and funds freshly agreed channels.
func (s *service) processMessage(ctx context.Context, msg domain.Message) error {
	payload := domain.Payload{Objectives: msg.Data.Objectives}
	recipients := make(map[string]struct{})

	for _, wire := range msg.Data.SignedStates {
		ss, err := domain.DeserializeSignedState(wire)
		if err != nil {
			return fmt.Errorf("malformed signed state: %s", err)
		}
		if _, ok := ss.ParticipantIndex(s.address); ok && !ss.HasSignatureFrom(s.address) {
			entry, err := domain.SignState(ss.State, s.key)
			if err != nil {
				return fmt.Errorf("failed to co-sign state: %s", err)
			}
			if err := ss.AddSignature(*entry); err != nil {
				return err
			}
		}
		signed := domain.SerializeSignedState(*ss)
		payload.SignedStates = append(payload.SignedStates, signed)

		for _, p := range ss.Participants {
			if p.ParticipantID != s.id && p.ParticipantID != msg.Sender {
				recipients[p.ParticipantID] = struct{}{}
			}
		}

		if err := s.updateChannelRecord(ctx, *ss, signed); err != nil {
			return err
		}
		if err := s.fundChannelIfNeeded(ctx, *ss); err != nil {
			return err
		}
	}
	if msg.Recipient != "" && msg.Recipient != s.id && msg.Recipient != msg.Sender {
		recipients[msg.Recipient] = struct{}{}
	}

	for recipient := range recipients {
		out := domain.Message{Sender: s.id, Recipient: recipient, Data: payload}
		if err := s.msg.Publish(ctx, recipient, out); err != nil {
			return fmt.Errorf("failed to relay message to %s: %s", recipient, err)
		}
	}
	return nil
}

func (s *service) updateChannelRecord(
	ctx context.Context, ss domain.SignedState, wire domain.SignedStateWire,
) error {
	channelID := ss.ChannelID()
	record, err := s.repoManager.Channels().GetChannel(ctx, channelID)
	if err != nil || record == nil {
		record = &domain.ChannelRecord{ChannelID: channelID}
	}
	if record.Latest.Signatures == nil || ss.TurnNum >= record.Latest.TurnNum {
		record.Latest = wire
	}
	record.TotalRequired = domain.TotalAllocated(ss.Outcome)
	record.UpdatedAt = time.Now().Unix()
	return s.repoManager.Channels().AddOrUpdateChannel(ctx, *record)
}

// fundChannelIfNeeded deposits the hub's share once the pre-fund setup is
// complete. The whole decision runs under the account-wide deposit lock so
// concurrent relays of the same channel cannot double-deposit.
func (s *service) fundChannelIfNeeded(ctx context.Context, ss domain.SignedState) error {
	participantCount := len(ss.Participants)
	if int(ss.TurnNum) != participantCount-1 || !ss.Supported() {
		return nil
	}
	if _, ok := ss.ParticipantIndex(s.address); !ok {
		return nil
	}
	if err := s.checkDepositPolicy(ss); err != nil {
		return err
	}

	s.depositLock.Lock()
	defer s.depositLock.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	channelID := ss.ChannelID()
	if s.depositInFlight != "" {
		log.WithFields(log.Fields{
			"channel": channelID, "pending": s.depositInFlight,
		}).Debug("deposit awaiting confirmation, deferring")
		return nil
	}

	holdings, err := s.chain.Holdings(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to fetch holdings for %s: %s", channelID, err)
	}
	share, _ := hubShare(ss.Outcome, s.destination)
	if holdings >= share {
		log.WithField("channel", channelID).Debug("hub share already deposited")
		return nil
	}

	txid, err := s.chain.Deposit(ctx, channelID, share-holdings, holdings)
	if err != nil {
		return fmt.Errorf("failed to deposit for %s: %s", channelID, err)
	}
	s.depositInFlight = channelID
	log.WithFields(log.Fields{
		"channel": channelID, "amount": share - holdings, "txid": txid,
	}).Info("hub deposit submitted")

	return s.repoManager.Deposits().AddOrUpdateDeposit(ctx, domain.DepositRecord{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		Amount:       share - holdings,
		ExpectedHeld: holdings,
		CreatedAt:    time.Now().Unix(),
	})
}

// checkDepositPolicy resolves what the hub refuses to guess: only
// bilateral channels with the hub in allocation position 0 are funded.
func (s *service) checkDepositPolicy(ss domain.SignedState) error {
	if len(ss.Participants) != 2 {
		return fmt.Errorf(
			"%w: channel %s has %d participants, hub only funds bilateral channels",
			ErrUnsupportedConfig, ss.ChannelID(), len(ss.Participants),
		)
	}
	allocation, ok := ss.Outcome.(domain.SimpleAllocation)
	if !ok {
		return fmt.Errorf("%w: channel %s outcome is not a simple allocation", ErrUnsupportedConfig, ss.ChannelID())
	}
	if len(allocation.Items) == 0 || allocation.Items[0].Destination != s.destination {
		return fmt.Errorf(
			"%w: hub must hold allocation position 0 of channel %s",
			ErrUnsupportedConfig, ss.ChannelID(),
		)
	}
	return nil
}

func (s *service) listenToChainEvents() {
	depositedCh := s.chain.GetDepositedNotifications()
	challengeCh := s.chain.GetChallengeNotifications()
	concludedCh := s.chain.GetConcludedNotifications()
	for {
		select {
		case event, ok := <-depositedCh:
			if !ok {
				return
			}
			s.onDeposited(event)
		case event, ok := <-challengeCh:
			if !ok {
				return
			}
			s.onChallengeCreated(event)
		case event, ok := <-concludedCh:
			if !ok {
				return
			}
			s.onConcluded(event)
		}
	}
}

func (s *service) onDeposited(event ports.ChainEvent) {
	ctx := context.Background()

	s.depositLock.Lock()
	if s.depositInFlight == event.ChannelID {
		s.depositInFlight = ""
	}
	s.depositLock.Unlock()
	s.confirmDeposits(ctx, event.ChannelID)

	record, err := s.repoManager.Channels().GetChannel(ctx, event.ChannelID)
	if err != nil || record == nil {
		log.WithField("channel", event.ChannelID).Debug("deposit event for unknown channel")
		return
	}
	record.Holdings = event.TotalHoldings
	record.Funded = record.TotalRequired > 0 && record.Holdings >= record.TotalRequired
	record.UpdatedAt = time.Now().Unix()
	if err := s.repoManager.Channels().AddOrUpdateChannel(ctx, *record); err != nil {
		log.WithError(err).Warn("failed to update channel holdings")
	}
}

func (s *service) confirmDeposits(ctx context.Context, channelID string) {
	deposits, err := s.repoManager.Deposits().GetDepositsForChannel(ctx, channelID)
	if err != nil {
		log.WithError(err).Warn("failed to load deposit records")
		return
	}
	for _, deposit := range deposits {
		if deposit.Confirmed {
			continue
		}
		deposit.Confirmed = true
		if err := s.repoManager.Deposits().AddOrUpdateDeposit(ctx, deposit); err != nil {
			log.WithError(err).Warn("failed to confirm deposit record")
		}
	}
}

func (s *service) onChallengeCreated(event ports.ChainEvent) {
	ctx := context.Background()
	record, err := s.repoManager.Channels().GetChannel(ctx, event.ChannelID)
	if err != nil || record == nil {
		record = &domain.ChannelRecord{ChannelID: event.ChannelID}
	}
	record.Challenged = true
	record.ChallengeExpiry = event.Expiry
	if event.Challenge != nil {
		record.ChallengeTurnNum = event.Challenge.TurnNum
	}
	record.UpdatedAt = time.Now().Unix()
	if err := s.repoManager.Channels().AddOrUpdateChannel(ctx, *record); err != nil {
		log.WithError(err).Warn("failed to record challenge")
	}
}

func (s *service) onConcluded(event ports.ChainEvent) {
	ctx := context.Background()
	if err := s.repoManager.Deposits().DeleteDepositsForChannel(ctx, event.ChannelID); err != nil {
		log.WithError(err).Warn("failed to delete deposit records")
	}
	if err := s.repoManager.Channels().DeleteChannel(ctx, event.ChannelID); err != nil {
		log.WithError(err).Warn("failed to delete channel record")
	}
	log.WithField("channel", event.ChannelID).Info("channel concluded")
}

// sweepExpiredChallenges withdraws the hub's share from channels whose
// challenges expired unanswered and drops their records.
func (s *service) sweepExpiredChallenges() {
	ctx := context.Background()
	now := time.Now().Unix()
	records, err := s.repoManager.Channels().GetChannelsWithExpiredChallenges(ctx, now)
	if err != nil {
		log.WithError(err).Warn("failed to scan for expired challenges")
		return
	}
	for _, record := range records {
		log.WithFields(log.Fields{
			"channel": record.ChannelID, "expiry": record.ChallengeExpiry,
		}).Warn("challenge expired, withdrawing hub share")

		txid, err := s.chain.Withdraw(ctx, record.ChannelID, s.destination, 0)
		if err != nil {
			log.WithError(err).WithField("channel", record.ChannelID).Warn("failed to withdraw")
			continue
		}
		log.WithFields(log.Fields{"channel": record.ChannelID, "txid": txid}).Info("hub withdrawal submitted")

		if err := s.repoManager.Deposits().DeleteDepositsForChannel(ctx, record.ChannelID); err != nil {
			log.WithError(err).Warn("failed to delete deposit records")
		}
		if err := s.repoManager.Channels().DeleteChannel(ctx, record.ChannelID); err != nil {
			log.WithError(err).Warn("failed to delete channel record")
		}
	}
}
