package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/channelforge/forcemove/internal/core/application"
	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/ports"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc       application.Service
	chain     *fakeChain
	msg       *fakeMsg
	repo      *fakeRepo
	scheduler *fakeScheduler

	keys         map[string]*secp256k1.PrivateKey
	participants map[string]domain.Participant

	hubAmount   uint64
	aliceAmount uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chain: &fakeChain{
			holdings:    make(map[string]uint64),
			depositedCh: make(chan ports.ChainEvent),
			challengeCh: make(chan ports.ChainEvent),
			concludedCh: make(chan ports.ChainEvent),
		},
		msg:          &fakeMsg{published: make(map[string][]domain.Message)},
		repo:         newFakeRepo(),
		scheduler:    &fakeScheduler{},
		keys:         make(map[string]*secp256k1.PrivateKey),
		participants: make(map[string]domain.Participant),
		hubAmount:    600,
		aliceAmount:  400,
	}
	for _, id := range []string{"alice", "bob", "hub"} {
		key, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		addr, err := domain.AddressFromPubKey(key.PubKey())
		require.NoError(t, err)
		dest, err := domain.DestinationFromAddress(addr)
		require.NoError(t, err)
		f.keys[id] = key
		f.participants[id] = domain.Participant{ParticipantID: id, SigningAddress: addr, Destination: dest}
	}

	svc, err := application.NewService(
		"hub", f.keys["hub"], 60, f.chain, f.msg, f.repo, f.scheduler,
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) constants(ids ...string) domain.ChannelConstants {
	participants := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, f.participants[id])
	}
	return domain.ChannelConstants{
		ChainID:           "forcemove-test",
		ChannelNonce:      42,
		Participants:      participants,
		AppDefinition:     "rps-v1",
		ChallengeDuration: 60,
	}
}

// peerChannelState builds a state for a channel the hub merely relays.
func (f *fixture) peerChannelState(t *testing.T, turn uint32) domain.State {
	t.Helper()
	return domain.State{
		ChannelConstants: f.constants("alice", "bob"),
		StateVariables: domain.StateVariables{
			Outcome: domain.SimpleAllocation{
				AssetHolder: "adjudicator-main",
				Items: []domain.AllocationItem{
					{Destination: f.participants["alice"].Destination, Amount: 500},
					{Destination: f.participants["bob"].Destination, Amount: 500},
				},
			},
			TurnNum: turn,
		},
	}
}

// hubChannelState builds a prefund state for a channel the hub funds: the
// hub holds allocation position 0.
func (f *fixture) hubChannelState(t *testing.T, turn uint32) domain.State {
	t.Helper()
	return domain.State{
		ChannelConstants: f.constants("alice", "hub"),
		StateVariables: domain.StateVariables{
			Outcome: domain.SimpleAllocation{
				AssetHolder: "adjudicator-main",
				Items: []domain.AllocationItem{
					{Destination: f.participants["hub"].Destination, Amount: f.hubAmount},
					{Destination: f.participants["alice"].Destination, Amount: f.aliceAmount},
				},
			},
			TurnNum: turn,
		},
	}
}

func (f *fixture) multiChannelState(t *testing.T) (domain.State, []*secp256k1.PrivateKey) {
	t.Helper()
	state := domain.State{
		ChannelConstants: f.constants("alice", "bob", "hub"),
		StateVariables: domain.StateVariables{
			Outcome: domain.SimpleAllocation{
				AssetHolder: "adjudicator-main",
				Items: []domain.AllocationItem{
					{Destination: f.participants["hub"].Destination, Amount: f.hubAmount},
					{Destination: f.participants["alice"].Destination, Amount: 200},
					{Destination: f.participants["bob"].Destination, Amount: 200},
				},
			},
			TurnNum: 2,
		},
	}
	return state, []*secp256k1.PrivateKey{f.keys["alice"], f.keys["bob"]}
}

func (f *fixture) signedMessage(t *testing.T, sender, recipient string, state domain.State) domain.Message {
	t.Helper()
	ss := domain.NewSignedState(state)
	entry, err := domain.SignState(state, f.keys[sender])
	require.NoError(t, err)
	require.NoError(t, ss.AddSignature(*entry))
	return domain.Message{
		Sender:    sender,
		Recipient: recipient,
		Data:      domain.Payload{SignedStates: []domain.SignedStateWire{domain.SerializeSignedState(ss)}},
	}
}

func (f *fixture) multiSignedMessage(
	t *testing.T, sender string, state domain.State, keys []*secp256k1.PrivateKey,
) domain.Message {
	t.Helper()
	ss := domain.NewSignedState(state)
	for _, key := range keys {
		entry, err := domain.SignState(state, key)
		require.NoError(t, err)
		require.NoError(t, ss.AddSignature(*entry))
	}
	return domain.Message{
		Sender:    sender,
		Recipient: "hub",
		Data:      domain.Payload{SignedStates: []domain.SignedStateWire{domain.SerializeSignedState(ss)}},
	}
}

type fakeChain struct {
	mu                sync.Mutex
	holdings          map[string]uint64
	depositCalls      int
	withdrawnChannels []string

	depositedCh chan ports.ChainEvent
	challengeCh chan ports.ChainEvent
	concludedCh chan ports.ChainEvent
}

func (c *fakeChain) Holdings(ctx context.Context, channelID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holdings[channelID], nil
}

func (c *fakeChain) Deposit(ctx context.Context, channelID string, amount, expectedHeld uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depositCalls++
	c.holdings[channelID] += amount
	return "tx-deposit", nil
}

func (c *fakeChain) ForceMove(ctx context.Context, channelID string, states []domain.SignedStateWire) (string, error) {
	return "tx-forcemove", nil
}

func (c *fakeChain) RespondWithMove(ctx context.Context, channelID string, state domain.SignedStateWire) (string, error) {
	return "tx-respond", nil
}

func (c *fakeChain) Refute(ctx context.Context, channelID string, state domain.SignedStateWire) (string, error) {
	return "tx-refute", nil
}

func (c *fakeChain) Conclude(ctx context.Context, channelID string, states []domain.SignedStateWire) (string, error) {
	return "tx-conclude", nil
}

func (c *fakeChain) Withdraw(ctx context.Context, channelID, destination string, amount uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withdrawnChannels = append(c.withdrawnChannels, channelID)
	return "tx-withdraw", nil
}

func (c *fakeChain) GetDepositedNotifications() <-chan ports.ChainEvent { return c.depositedCh }
func (c *fakeChain) GetChallengeNotifications() <-chan ports.ChainEvent { return c.challengeCh }
func (c *fakeChain) GetConcludedNotifications() <-chan ports.ChainEvent { return c.concludedCh }
func (c *fakeChain) Close()                                             {}

type fakeMsg struct {
	mu        sync.Mutex
	published map[string][]domain.Message
}

func (m *fakeMsg) Publish(ctx context.Context, recipient string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[recipient] = append(m.published[recipient], msg)
	return nil
}

func (m *fakeMsg) Consume(ctx context.Context, recipient string) (<-chan domain.QueuedMessage, error) {
	return make(chan domain.QueuedMessage), nil
}

func (m *fakeMsg) Ack(ctx context.Context, id string) error { return nil }
func (m *fakeMsg) Close()                                   {}

type fakeRepo struct {
	mu        sync.Mutex
	channels  map[string]domain.ChannelRecord
	queued    map[string]domain.QueuedMessage
	processed map[string]struct{}
	deposits  map[string][]domain.DepositRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		channels:  make(map[string]domain.ChannelRecord),
		queued:    make(map[string]domain.QueuedMessage),
		processed: make(map[string]struct{}),
		deposits:  make(map[string][]domain.DepositRecord),
	}
}

func (r *fakeRepo) Channels() domain.ChannelRecordRepository { return r }
func (r *fakeRepo) Messages() domain.MessageRepository       { return r }
func (r *fakeRepo) Deposits() domain.DepositRepository       { return r }
func (r *fakeRepo) Close()                                   {}

func (r *fakeRepo) AddOrUpdateChannel(ctx context.Context, record domain.ChannelRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[record.ChannelID] = record
	return nil
}

func (r *fakeRepo) GetChannel(ctx context.Context, channelID string) (*domain.ChannelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	return &record, nil
}

func (r *fakeRepo) GetChannelsWithExpiredChallenges(ctx context.Context, now int64) ([]domain.ChannelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []domain.ChannelRecord
	for _, record := range r.channels {
		if record.Challenged && record.ChallengeExpiry <= now {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r *fakeRepo) DeleteChannel(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, channelID)
	return nil
}

func (r *fakeRepo) Push(ctx context.Context, msg domain.QueuedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued[msg.ID] = msg
	return nil
}

func (r *fakeRepo) ListPending(ctx context.Context) ([]domain.QueuedMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]domain.QueuedMessage, 0, len(r.queued))
	for _, msg := range r.queued {
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (r *fakeRepo) Ack(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queued, id)
	return nil
}

func (r *fakeRepo) MarkProcessed(ctx context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[digest] = struct{}{}
	return nil
}

func (r *fakeRepo) WasProcessed(ctx context.Context, digest string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processed[digest]
	return ok, nil
}

func (r *fakeRepo) AddOrUpdateDeposit(ctx context.Context, record domain.DepositRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, deposit := range r.deposits[record.ChannelID] {
		if deposit.ID == record.ID {
			r.deposits[record.ChannelID][i] = record
			return nil
		}
	}
	r.deposits[record.ChannelID] = append(r.deposits[record.ChannelID], record)
	return nil
}

func (r *fakeRepo) GetDepositsForChannel(ctx context.Context, channelID string) ([]domain.DepositRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deposits[channelID], nil
}

func (r *fakeRepo) DeleteDepositsForChannel(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.deposits, channelID)
	return nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) ScheduleTask(interval int64, immediate bool, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeScheduler) runAll() {
	s.mu.Lock()
	tasks := append([]func(){}, s.tasks...)
	s.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}
