package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/onseju/matching-service/internal/metrics"
	"github.com/onseju/matching-service/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits each trade as a JSON message keyed by company code,
// so trades of one company stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher builds an async writer for topic. Delivery errors are
// reported through the completion callback.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					metrics.PublishFailures.WithLabelValues("kafka").Add(float64(len(msgs)))
					slog.Error("kafka delivery failed", "messages", len(msgs), "err", err)
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, trade model.TradeExecution) {
	value, err := json.Marshal(trade)
	if err != nil {
		metrics.PublishFailures.WithLabelValues("kafka").Inc()
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(trade.CompanyCode),
		Value: value,
	})
	if err != nil {
		metrics.PublishFailures.WithLabelValues("kafka").Inc()
		slog.Error("kafka publish failed", "company", trade.CompanyCode, "err", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
