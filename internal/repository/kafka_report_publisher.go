package repository

import (
	"context"

	"BreadthPull/internal/domain/models"
	"BreadthPull/internal/domain/repository"
)

// Producer publishes one message to a topic.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher sends every report to a Kafka topic, keyed by run id.
type KafkaReportPublisher struct {
	producer Producer
	topic    string
	tail     int
}

// NewKafkaReportPublisher creates the Kafka report sink. Series are trimmed to tail points.
func NewKafkaReportPublisher(producer Producer, topic string, tail int) repository.ReportSink {
	return &KafkaReportPublisher{producer: producer, topic: topic, tail: tail}
}

func (p *KafkaReportPublisher) Name() string { return "kafka" }

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.Report) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.RunID), models.NewReportView(r, p.tail))
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
