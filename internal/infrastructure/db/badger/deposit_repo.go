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

const depositStoreDir = "deposits"

type depositRepository struct {
	store *badgerhold.Store
}

func NewDepositRepository(baseDir string, logger badger.Logger) (dbtypes.DepositStore, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, depositStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open deposit store: %s", err)
	}
	return &depositRepository{store}, nil
}

func (r *depositRepository) AddOrUpdateDeposit(
	ctx context.Context, record domain.DepositRecord,
) error {
	return r.store.Upsert(record.ID, record)
}

func (r *depositRepository) GetDepositsForChannel(
	ctx context.Context, channelID string,
) ([]domain.DepositRecord, error) {
	query := badgerhold.Where("ChannelID").Eq(channelID)
	var records []domain.DepositRecord
	if err := r.store.Find(&records, query); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *depositRepository) DeleteDepositsForChannel(ctx context.Context, channelID string) error {
	query := badgerhold.Where("ChannelID").Eq(channelID)
	return r.store.DeleteMatching(domain.DepositRecord{}, query)
}

func (r *depositRepository) Close() {
	r.store.Close()
}
