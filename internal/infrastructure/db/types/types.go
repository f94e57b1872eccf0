package dbtypes

import "github.com/channelforge/forcemove/internal/core/domain"

type ChannelStore interface {
	domain.ChannelRecordRepository
	Close()
}

type MessageStore interface {
	domain.MessageRepository
	Close()
}

type DepositStore interface {
	domain.DepositRepository
	Close()
}
