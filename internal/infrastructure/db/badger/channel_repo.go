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

const channelStoreDir = "channels"

type channelRepository struct {
	store *badgerhold.Store
}

func NewChannelRepository(baseDir string, logger badger.Logger) (dbtypes.ChannelStore, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, channelStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel store: %s", err)
	}
	return &channelRepository{store}, nil
}

func (r *channelRepository) AddOrUpdateChannel(
	ctx context.Context, record domain.ChannelRecord,
) error {
	return r.store.Upsert(record.ChannelID, record)
}

func (r *channelRepository) GetChannel(
	ctx context.Context, channelID string,
) (*domain.ChannelRecord, error) {
	query := badgerhold.Where("ChannelID").Eq(channelID)
	var records []domain.ChannelRecord
	if err := r.store.Find(&records, query); err != nil {
		return nil, err
	}
	if len(records) <= 0 {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	return &records[0], nil
}

func (r *channelRepository) GetChannelsWithExpiredChallenges(
	ctx context.Context, now int64,
) ([]domain.ChannelRecord, error) {
	query := badgerhold.Where("Challenged").Eq(true).And("ChallengeExpiry").Le(now)
	var records []domain.ChannelRecord
	if err := r.store.Find(&records, query); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *channelRepository) DeleteChannel(ctx context.Context, channelID string) error {
	return r.store.Delete(channelID, domain.ChannelRecord{})
}

func (r *channelRepository) Close() {
	r.store.Close()
}
