package publishers

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/samvad-hq/samvad-news-reader/internal/logger"
)

// kafkaPublisher writes each event to a topic, keyed by article so that repeats of
// one article land on the same partition.
type kafkaPublisher struct {
	id       string
	topic    string
	producer sarama.SyncProducer
	log      logger.Logger
}

func kafkaProducerConfig(cfg *KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3
	return sc
}

func newKafkaPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.Kafka == nil {
		return nil, fmt.Errorf("publisher %q missing kafka configuration", cfg.ID)
	}
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaProducerConfig(cfg.Kafka))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &kafkaPublisher{
		id:       cfg.ID,
		topic:    cfg.Kafka.Topic,
		producer: producer,
		log:      logger.Ensure(log),
	}, nil
}

func (k *kafkaPublisher) ID() string   { return k.id }
func (k *kafkaPublisher) Type() string { return TypeKafka }

func (k *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := marshalEvent(evt)
	if err != nil {
		return err
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(evt.Key()),
		Value: sarama.StringEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("source_id"), Value: []byte(evt.SourceID)},
			{Key: []byte("session_id"), Value: []byte(evt.SessionID)},
		},
	})
	if err != nil {
		k.log.ErrorObj("kafka publisher send failed", "publisher_kafka_error", map[string]any{
			"publisher_id": k.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("send message to kafka: %w", err)
	}
	k.log.DebugObj("kafka publisher delivered event", "publisher_kafka_delivery", map[string]any{
		"publisher_id": k.id,
		"partition":    partition,
		"offset":       offset,
	})
	return nil
}

func (k *kafkaPublisher) Close() error {
	return k.producer.Close()
}
