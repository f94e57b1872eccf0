package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/channelforge/forcemove/internal/core/domain"
	dbtypes "github.com/channelforge/forcemove/internal/infrastructure/db/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const messageStoreDir = "messages"

type processedDTO struct {
	Digest string
}

type messageRepository struct {
	store *badgerhold.Store
}

func NewMessageRepository(baseDir string, logger badger.Logger) (dbtypes.MessageStore, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, messageStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %s", err)
	}
	return &messageRepository{store}, nil
}

func (r *messageRepository) Push(ctx context.Context, msg domain.QueuedMessage) error {
	return r.store.Upsert(msg.ID, msg)
}

func (r *messageRepository) ListPending(ctx context.Context) ([]domain.QueuedMessage, error) {
	var msgs []domain.QueuedMessage
	query := (&badgerhold.Query{}).SortBy("CreatedAt")
	if err := r.store.Find(&msgs, query); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) Ack(ctx context.Context, id string) error {
	return r.store.Delete(id, domain.QueuedMessage{})
}

func (r *messageRepository) MarkProcessed(ctx context.Context, digest string) error {
	return r.store.Upsert("processed-"+digest, processedDTO{Digest: digest})
}

func (r *messageRepository) WasProcessed(ctx context.Context, digest string) (bool, error) {
	var records []processedDTO
	query := badgerhold.Where("Digest").Eq(digest)
	if err := r.store.Find(&records, query); err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

func (r *messageRepository) Close() {
	r.store.Close()
}
