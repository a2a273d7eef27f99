package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

const (
	TypeAssetCreated        = "asset.created"
	TypeConversionCompleted = "asset.conversion.completed"
	TypeConversionFailed    = "asset.conversion.failed"
)

// AssetEvent is published to kafka after upload and conversion outcomes so
// downstream consumers (notifications, proposal rendering) can react without
// polling the database.
type AssetEvent struct {
	Type           string `json:"type"`
	AssetID        string `json:"asset_id"`
	ParentEntityID string `json:"parent_entity_id"`
	FileURL        string `json:"file_url"`
	TraceID        string `json:"trace_id,omitempty"`
}

type Producer interface {
	SendAssetEvent(ctx context.Context, event *AssetEvent) error
	Close() error
}

type producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p, topic: topic}, nil
}

func (p *producer) SendAssetEvent(ctx context.Context, event *AssetEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AssetID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
