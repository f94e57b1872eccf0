package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/ports"
	"github.com/channelforge/forcemove/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	channelID = "c6b27863c4a4b1bdd42ebbdfa8932a5a25e71d2a2d9b0a9a4b0f1b5f6de0a2c1"
	digest    = "7d87c5ea75f7378bb701e404c50639161af3eff66293e9f375b5f17eb50476f4"
)

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name:   "repo_manager_with_inmemory_stores",
			config: db.ServiceConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)

			testChannelRepository(t, svc)
			testMessageRepository(t, svc)
			testDepositRepository(t, svc)

			svc.Close()
		})
	}
}

func testChannelRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_channel_repository", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now().Unix()

		record, err := svc.Channels().GetChannel(ctx, channelID)
		require.Error(t, err)
		require.Nil(t, record)

		newRecord := domain.ChannelRecord{
			ChannelID: channelID,
			Latest: domain.SignedStateWire{
				ChannelID: channelID,
				ChainID:   "forcemove-test",
				TurnNum:   1,
			},
			Holdings:      500,
			TotalRequired: 1000,
			UpdatedAt:     now,
		}
		err = svc.Channels().AddOrUpdateChannel(ctx, newRecord)
		require.NoError(t, err)

		record, err = svc.Channels().GetChannel(ctx, channelID)
		require.NoError(t, err)
		require.NotNil(t, record)
		require.Exactly(t, newRecord, *record)

		newRecord.Holdings = 1000
		newRecord.Funded = true
		err = svc.Channels().AddOrUpdateChannel(ctx, newRecord)
		require.NoError(t, err)

		record, err = svc.Channels().GetChannel(ctx, channelID)
		require.NoError(t, err)
		require.True(t, record.Funded)
		require.Equal(t, uint64(1000), record.Holdings)

		expired, err := svc.Channels().GetChannelsWithExpiredChallenges(ctx, now)
		require.NoError(t, err)
		require.Empty(t, expired)

		newRecord.Challenged = true
		newRecord.ChallengeExpiry = now - 10
		err = svc.Channels().AddOrUpdateChannel(ctx, newRecord)
		require.NoError(t, err)

		expired, err = svc.Channels().GetChannelsWithExpiredChallenges(ctx, now)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		require.Equal(t, channelID, expired[0].ChannelID)

		err = svc.Channels().DeleteChannel(ctx, channelID)
		require.NoError(t, err)

		record, err = svc.Channels().GetChannel(ctx, channelID)
		require.Error(t, err)
		require.Nil(t, record)
	})
}

func testMessageRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_message_repository", func(t *testing.T) {
		ctx := context.Background()

		pending, err := svc.Messages().ListPending(ctx)
		require.NoError(t, err)
		require.Empty(t, pending)

		first := domain.QueuedMessage{
			ID:        uuid.New().String(),
			Recipient: "bob",
			Message:   domain.Message{Sender: "alice", Recipient: "bob"},
			CreatedAt: 100,
		}
		second := domain.QueuedMessage{
			ID:        uuid.New().String(),
			Recipient: "alice",
			Message:   domain.Message{Sender: "bob", Recipient: "alice"},
			CreatedAt: 200,
		}
		require.NoError(t, svc.Messages().Push(ctx, second))
		require.NoError(t, svc.Messages().Push(ctx, first))

		pending, err = svc.Messages().ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, first.ID, pending[0].ID)
		require.Equal(t, second.ID, pending[1].ID)

		err = svc.Messages().Ack(ctx, first.ID)
		require.NoError(t, err)

		pending, err = svc.Messages().ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, second.ID, pending[0].ID)

		processed, err := svc.Messages().WasProcessed(ctx, digest)
		require.NoError(t, err)
		require.False(t, processed)

		err = svc.Messages().MarkProcessed(ctx, digest)
		require.NoError(t, err)

		processed, err = svc.Messages().WasProcessed(ctx, digest)
		require.NoError(t, err)
		require.True(t, processed)
	})
}

func testDepositRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_deposit_repository", func(t *testing.T) {
		ctx := context.Background()

		deposits, err := svc.Deposits().GetDepositsForChannel(ctx, channelID)
		require.NoError(t, err)
		require.Empty(t, deposits)

		record := domain.DepositRecord{
			ID:           uuid.New().String(),
			ChannelID:    channelID,
			Amount:       600,
			ExpectedHeld: 400,
			CreatedAt:    time.Now().Unix(),
		}
		err = svc.Deposits().AddOrUpdateDeposit(ctx, record)
		require.NoError(t, err)

		record.Confirmed = true
		err = svc.Deposits().AddOrUpdateDeposit(ctx, record)
		require.NoError(t, err)

		deposits, err = svc.Deposits().GetDepositsForChannel(ctx, channelID)
		require.NoError(t, err)
		require.Len(t, deposits, 1)
		require.True(t, deposits[0].Confirmed)
		require.Exactly(t, record, deposits[0])

		err = svc.Deposits().DeleteDepositsForChannel(ctx, channelID)
		require.NoError(t, err)

		deposits, err = svc.Deposits().GetDepositsForChannel(ctx, channelID)
		require.NoError(t, err)
		require.Empty(t, deposits)
	})
}
