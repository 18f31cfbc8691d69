package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-energy-pipeline/internal/config"
	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

// Writer publishes correlation rows to a Kafka topic. It implements
// pipeline.CorrelationSink and is only wired in when brokers are configured.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishCorrelations serializes and publishes a full correlation snapshot in
// a single WriteMessages call. Consumers treat the key (date|region) as the
// row identity, so a republished snapshot compacts cleanly.
func (w *Writer) PublishCorrelations(ctx context.Context, rows []domain.WeatherEnergyCorrelation) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a correlation row into a Kafka message.
func serializeToMessage(row domain.WeatherEnergyCorrelation) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize correlation row: %w", err)
	}
	key := fmt.Sprintf("%s|%s", row.Date.Format("2006-01-02"), row.Region)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(row.Region)},
			{Key: "created_at", Value: []byte(row.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
