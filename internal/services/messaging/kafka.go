package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"

	"ppe-monitor-go/internal/config"
)

// KafkaService publishes JSON messages to Kafka topics. The subject is the topic.
type KafkaService struct {
	producer sarama.SyncProducer
	key      string
}

func NewKafkaService(cfg *config.Config) (*KafkaService, error) {
	kcfg := sarama.NewConfig()
	kcfg.ClientID = "ppe-monitor-" + cfg.MonitorID
	kcfg.Producer.RequiredAcks = sarama.WaitForLocal
	kcfg.Producer.Return.Successes = true
	kcfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, kcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("Kafka producer established")

	return newKafkaService(producer, cfg.MonitorID), nil
}

func newKafkaService(producer sarama.SyncProducer, key string) *KafkaService {
	return &KafkaService{producer: producer, key: key}
}

func (s *KafkaService) Publish(topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(s.key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to send kafka message: %w", err)
	}

	log.Debug().
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Kafka message sent")
	return nil
}

func (s *KafkaService) Shutdown(ctx context.Context) error {
	return s.producer.Close()
}
