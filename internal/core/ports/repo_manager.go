package ports

import "github.com/channelforge/forcemove/internal/core/domain"

type RepoManager interface {
	Channels() domain.ChannelRecordRepository
	Messages() domain.MessageRepository
	Deposits() domain.DepositRepository
	Close()
}
