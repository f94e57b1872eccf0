package db

import (
	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/ports"
	badgerdb "github.com/channelforge/forcemove/internal/infrastructure/db/badger"
	dbtypes "github.com/channelforge/forcemove/internal/infrastructure/db/types"
	"github.com/dgraph-io/badger/v4"
)

// ServiceConfig selects where the hub stores go. An empty Datadir keeps
// everything in memory, which the tests rely on.
type ServiceConfig struct {
	Datadir string
	Logger  badger.Logger
}

type service struct {
	channelStore dbtypes.ChannelStore
	messageStore dbtypes.MessageStore
	depositStore dbtypes.DepositStore
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	channelStore, err := badgerdb.NewChannelRepository(config.Datadir, config.Logger)
	if err != nil {
		return nil, err
	}
	messageStore, err := badgerdb.NewMessageRepository(config.Datadir, config.Logger)
	if err != nil {
		return nil, err
	}
	depositStore, err := badgerdb.NewDepositRepository(config.Datadir, config.Logger)
	if err != nil {
		return nil, err
	}
	return &service{channelStore, messageStore, depositStore}, nil
}

func (s *service) Channels() domain.ChannelRecordRepository { return s.channelStore }

func (s *service) Messages() domain.MessageRepository { return s.messageStore }

func (s *service) Deposits() domain.DepositRepository { return s.depositStore }

func (s *service) Close() {
	s.channelStore.Close()
	s.messageStore.Close()
	s.depositStore.Close()
}
