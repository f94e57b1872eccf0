package ports

import (
	"context"

	"github.com/channelforge/forcemove/internal/core/domain"
)

// MsgService relays wire messages between channel participants with
// at-least-once delivery: a consumed message stays queued until acked.
type MsgService interface {
	Publish(ctx context.Context, recipient string, msg domain.Message) error
	Consume(ctx context.Context, recipient string) (<-chan domain.QueuedMessage, error)
	Ack(ctx context.Context, id string) error
	Close()
}
