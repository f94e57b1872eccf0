package domain

import "context"

// ChannelRecord is the hub's persistent view of one channel. States are
// stored in wire form so the record stays codec-friendly.
type ChannelRecord struct {
	ChannelID string
	Latest    SignedStateWire

	Holdings      uint64
	TotalRequired uint64
	Funded        bool

	Challenged       bool
	ChallengeTurnNum uint32
	ChallengeExpiry  int64

	UpdatedAt int64
}

// QueuedMessage is an inbound wire message awaiting processing. Records
// survive restarts and are deleted only after a successful ack.
type QueuedMessage struct {
	ID        string
	Recipient string
	Message   Message
	CreatedAt int64
}

// DepositRecord tracks one hub deposit from request to confirmation.
type DepositRecord struct {
	ID           string
	ChannelID    string
	Amount       uint64
	ExpectedHeld uint64
	Confirmed    bool
	CreatedAt    int64
}

type ChannelRecordRepository interface {
	AddOrUpdateChannel(ctx context.Context, record ChannelRecord) error
	GetChannel(ctx context.Context, channelID string) (*ChannelRecord, error)
	GetChannelsWithExpiredChallenges(ctx context.Context, now int64) ([]ChannelRecord, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

type MessageRepository interface {
	Push(ctx context.Context, msg QueuedMessage) error
	ListPending(ctx context.Context) ([]QueuedMessage, error)
	Ack(ctx context.Context, id string) error
	MarkProcessed(ctx context.Context, digest string) error
	WasProcessed(ctx context.Context, digest string) (bool, error)
}

type DepositRepository interface {
	AddOrUpdateDeposit(ctx context.Context, record DepositRecord) error
	GetDepositsForChannel(ctx context.Context, channelID string) ([]DepositRecord, error)
	DeleteDepositsForChannel(ctx context.Context, channelID string) error
}
