package ports

import (
	"context"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// ChainEvent is an adjudicator notification delivered over the service's
// event channels.
type ChainEvent struct {
	ChannelID string
	// Deposited
	AmountDeposited uint64
	TotalHoldings   uint64
	// ChallengeCreated
	Challenge *domain.SignedStateWire
	Expiry    int64
}

// ChainService is the adjudicator boundary: deposits, dispute moves and
// settlement, plus event subscriptions.
type ChainService interface {
	Holdings(ctx context.Context, channelID string) (uint64, error)
	Deposit(ctx context.Context, channelID string, amount, expectedHeld uint64) (string, error)
	ForceMove(ctx context.Context, channelID string, states []domain.SignedStateWire) (string, error)
	RespondWithMove(ctx context.Context, channelID string, state domain.SignedStateWire) (string, error)
	Refute(ctx context.Context, channelID string, state domain.SignedStateWire) (string, error)
	Conclude(ctx context.Context, channelID string, states []domain.SignedStateWire) (string, error)
	Withdraw(ctx context.Context, channelID, destination string, amount uint64) (string, error)

	GetDepositedNotifications() <-chan ChainEvent
	GetChallengeNotifications() <-chan ChainEvent
	GetConcludedNotifications() <-chan ChainEvent
	Close()
}
