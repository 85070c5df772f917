// v2
// kafka.go
package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// exportEnvelope is one message on the export topic: the rows of one fetch
// plus the nominal fetch timestamp applied to rows without their own.
type exportEnvelope struct {
	FetchedAt time.Time        `json:"fetchedAt"`
	Rows      []map[string]any `json:"rows"`
}

// KafkaIO owns the export-stream reader and the snapshot writer.
type KafkaIO struct {
	cfg *AppConfig
	lg  *slog.Logger

	reader     *kafka.Reader
	snapWriter *kafka.Writer
}

func NewKafkaIO(cfg *AppConfig, lg *slog.Logger) (*KafkaIO, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	io := &KafkaIO{cfg: cfg, lg: lg}
	if err := io.ensureTopics(context.Background()); err != nil {
		lg.Warn("topic ensure failed", "error", err)
	}
	io.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.ConsumerGroup,
		Topic:    cfg.ExportTopic,
		MinBytes: 1, MaxBytes: 10e6, MaxWait: 200 * time.Millisecond,
	})
	io.snapWriter = &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.SnapshotTopic,
		RequiredAcks: kafka.RequireAll,
	}
	lg.Info("kafka wired", "exportTopic", cfg.ExportTopic, "snapshotTopic", cfg.SnapshotTopic, "group", cfg.ConsumerGroup)
	return io, nil
}

func (ioh *KafkaIO) ensureTopics(ctx context.Context) error {
	broker := ioh.cfg.KafkaBrokers[0]
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func(conn *kafka.Conn) {
		if err := conn.Close(); err != nil {
			ioh.lg.Warn("broker conn close", "error", err)
		}
	}(conn)
	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	c, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", ctrl.Host, ctrl.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer func(c *kafka.Conn) {
		if err := c.Close(); err != nil {
			ioh.lg.Warn("controller conn close", "error", err)
		}
	}(c)

	cfgs := []kafka.TopicConfig{
		{Topic: ioh.cfg.ExportTopic, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: ioh.cfg.SnapshotTopic, NumPartitions: 1, ReplicationFactor: 1},
	}
	if err := c.CreateTopics(cfgs...); err != nil {
		ioh.lg.Warn("CreateTopics", "error", err)
	}
	return nil
}

// Poll drains whatever export messages arrived since the last call and
// returns their rows stamped with each envelope's fetch time. Returns an
// empty slice, not an error, when the topic is quiet.
func (ioh *KafkaIO) Poll(ctx context.Context, budget time.Duration) ([]RawReading, error) {
	deadline, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var rows []RawReading
	for {
		msg, err := ioh.reader.ReadMessage(deadline)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return rows, nil
			}
			return rows, fmt.Errorf("read export message: %w", err)
		}
		env, err := decodeEnvelope(msg.Value)
		if err != nil {
			ioh.lg.Error("invalid export message", "offset", msg.Offset, "error", err)
			continue
		}
		fetched := env.FetchedAt
		if fetched.IsZero() {
			fetched = msg.Time
		}
		for _, fields := range env.Rows {
			rows = append(rows, RawReading{Fields: fields, SourceTime: fetched.UTC()})
		}
	}
}

// decodeEnvelope accepts either the envelope object or a bare row array
// (older exporters ship the latter). Numbers stay json.Number so ids and
// unix timestamps do not lose precision through float64.
func decodeEnvelope(b []byte) (exportEnvelope, error) {
	var env exportEnvelope
	if err := unmarshalUseNumber(b, &env); err == nil && env.Rows != nil {
		return env, nil
	}
	var bare []map[string]any
	if err := unmarshalUseNumber(b, &bare); err != nil {
		return env, err
	}
	env.Rows = bare
	return env, nil
}

func unmarshalUseNumber(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// PublishSnapshot writes the latest per-hive state to the snapshot topic.
func (ioh *KafkaIO) PublishSnapshot(ctx context.Context, snap any) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := ioh.snapWriter.WriteMessages(ctx, kafka.Message{Value: b}); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (ioh *KafkaIO) Close() {
	if err := ioh.reader.Close(); err != nil {
		ioh.lg.Warn("reader close", "error", err)
	}
	if err := ioh.snapWriter.Close(); err != nil {
		ioh.lg.Warn("snapshot writer close", "error", err)
	}
}
