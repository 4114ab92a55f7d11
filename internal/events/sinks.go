package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessageProducer is satisfied by client.KafkaProducer.
type MessageProducer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// DocumentIndexer is satisfied by client.ESClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, document interface{}) error
}

// Execer is satisfied by client.ClickHouseClient.
type Execer interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
}

type KafkaSink struct {
	producer MessageProducer
	topic    string
}

func NewKafkaSink(producer MessageProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Publish keys messages by user id so one user's events stay ordered.
func (s *KafkaSink) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.producer.ProduceMessage(ctx, s.topic, []byte(evt.UserID), value, map[string]string{
		"event_type": evt.Type,
		"event_id":   evt.ID,
	})
}

type ElasticsearchSink struct {
	indexer DocumentIndexer
	index   string
}

func NewElasticsearchSink(indexer DocumentIndexer, index string) *ElasticsearchSink {
	return &ElasticsearchSink{indexer: indexer, index: index}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Publish(ctx context.Context, evt Event) error {
	return s.indexer.IndexDocument(ctx, s.index, evt.ID, evt)
}

type ClickhouseSink struct {
	conn  Execer
	table string
}

func NewClickhouseSink(conn Execer, table string) *ClickhouseSink {
	return &ClickhouseSink{conn: conn, table: table}
}

func (s *ClickhouseSink) Name() string { return "clickhouse" }

// EnsureTable creates the events table when missing.
func (s *ClickhouseSink) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id         String,
    type       LowCardinality(String),
    occurred   DateTime64(3, 'UTC'),
    user_id    String,
    company_id String,
    device_id  String,
    session_id String,
    remote_ip  String,
    outcome    LowCardinality(String),
    detail     String
) ENGINE = MergeTree
ORDER BY (type, occurred)`, s.table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

func (s *ClickhouseSink) Publish(ctx context.Context, evt Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, type, occurred, user_id, company_id, device_id, session_id, remote_ip, outcome, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	return s.conn.Exec(ctx, query,
		evt.ID, evt.Type, evt.Occurred, evt.UserID, evt.CompanyID,
		evt.DeviceID, evt.SessionID, evt.RemoteIP, evt.Outcome, evt.Detail)
}
