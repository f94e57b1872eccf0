package msg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/ports"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// service is a store-backed message relay. Every published message is
// persisted before delivery and stays in the store until acked, so a
// consumer restarting mid-delivery sees it again.
type service struct {
	store domain.MessageRepository

	lock sync.Mutex
	subs map[string][]chan domain.QueuedMessage
}

func NewService(store domain.MessageRepository) ports.MsgService {
	return &service{
		store: store,
		subs:  make(map[string][]chan domain.QueuedMessage),
	}
}

func (s *service) Publish(ctx context.Context, recipient string, msg domain.Message) error {
	queued := domain.QueuedMessage{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Message:   msg,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.Push(ctx, queued); err != nil {
		return fmt.Errorf("failed to persist message for %s: %s", recipient, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	for _, sub := range s.subs[recipient] {
		select {
		case sub <- queued:
		default:
			log.WithField("recipient", recipient).Warn("subscriber not keeping up, message stays queued")
		}
	}
	return nil
}

// Consume streams the recipient's messages, starting with everything still
// pending in the store.
func (s *service) Consume(ctx context.Context, recipient string) (<-chan domain.QueuedMessage, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.QueuedMessage, 32)
	s.lock.Lock()
	s.subs[recipient] = append(s.subs[recipient], ch)
	s.lock.Unlock()

	go func() {
		for _, queued := range pending {
			if queued.Recipient != recipient {
				continue
			}
			select {
			case ch <- queued:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *service) Ack(ctx context.Context, id string) error {
	return s.store.Ack(ctx, id)
}

func (s *service) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, subs := range s.subs {
		for _, sub := range subs {
			close(sub)
		}
	}
	s.subs = make(map[string][]chan domain.QueuedMessage)
}
