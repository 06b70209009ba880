package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/DomainHub/config"
)

func newTestProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, saramaConfig)
	p := &Producer{
		producer: mock,
		config: &config.KafkaConfig{
			Topic:          "domainhub.invite.redeemed",
			MaxRetries:     2,
			RetryBackoffMs: 1,
		},
	}
	return p, mock
}

func TestPublishRedemption(t *testing.T) {
	p, mock := newTestProducer(t)
	defer p.Close()

	event := RedemptionEvent{
		Code:          "ABCDEFGHJK",
		RootDomain:    "example.com",
		Subdomain:     "blog",
		InviterUserID: 1,
		InviteeUserID: 2,
		InviteeEmail:  "invitee@example.com",
		OccurredAt:    time.Now().UTC(),
	}

	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got RedemptionEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		assert.Equal(t, event.Code, got.Code)
		assert.Equal(t, event.RootDomain, got.RootDomain)
		assert.Equal(t, event.InviteeUserID, got.InviteeUserID)
		return nil
	})

	err := p.PublishRedemption(context.Background(), event)
	require.NoError(t, err)
}

func TestPublishRedemptionRetriesThenFails(t *testing.T) {
	p, mock := newTestProducer(t)
	defer p.Close()

	for i := 0; i <= p.config.MaxRetries; i++ {
		mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	err := p.PublishRedemption(context.Background(), RedemptionEvent{Code: "ABCDEFGHJK"})
	require.Error(t, err)
}

func TestPublishRedemptionContextCanceled(t *testing.T) {
	p, _ := newTestProducer(t)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PublishRedemption(ctx, RedemptionEvent{Code: "ABCDEFGHJK"})
	require.ErrorIs(t, err, context.Canceled)
}
