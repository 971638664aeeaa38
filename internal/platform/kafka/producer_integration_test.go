//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"idbcrm/internal/platform/kafka"
	"idbcrm/internal/platform/outbox"
	"idbcrm/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	brokers []string
}

func TestProducerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *ProducerSuite) TestPublishIsConsumableInOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "crm.timeline." + uuid.NewString()[:8]

	p, err := kafka.NewProducer(s.brokers, topic)
	s.Require().NoError(err)
	defer p.Close()
	s.Require().NoError(p.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(p.EnsureTopic(ctx, 1, 1), "second ensure must tolerate an existing topic")

	leadID := uuid.NewString()
	entries := []outbox.Entry{
		{ID: uuid.New(), AggregateType: "lead", AggregateID: leadID, EventType: "LEAD_CREATED", Payload: []byte(`{"n":1}`), CreatedAt: time.Now()},
		{ID: uuid.New(), AggregateType: "lead", AggregateID: leadID, EventType: "LEAD_NOTE_ADDED", Payload: []byte(`{"n":2}`), CreatedAt: time.Now()},
	}
	s.Require().NoError(p.Publish(ctx, entries))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []string
	for len(got) < 2 {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			got = append(got, string(r.Value))
		})
	}
	s.Equal([]string{`{"n":1}`, `{"n":2}`}, got)
}
