package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, evt)
	return s.err
}

func TestNewPublisherWithoutSinksIsNoop(t *testing.T) {
	p := NewPublisher(time.Second)
	assert.IsType(t, Noop{}, p)
	assert.NoError(t, p.Publish(context.Background(), New(LoginSucceeded, "success")))
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("broker down")}
	m := NewMulti(time.Second, ok, bad)

	evt := New(AuthSessionDeviceProvisioned, "success")
	err := m.Publish(context.Background(), evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.Len(t, ok.got, 1)
	require.Len(t, bad.got, 1)
	assert.Equal(t, evt.ID, ok.got[0].ID)
}

func TestMultiIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	sink := &ctxSink{fn: func(ctx context.Context) { seen = ctx.Err() }}
	require.NoError(t, NewMulti(time.Second, sink).Publish(ctx, New(LoginFailed, "failure")))
	assert.NoError(t, seen)
}

type ctxSink struct{ fn func(context.Context) }

func (s *ctxSink) Name() string { return "ctx" }
func (s *ctxSink) Publish(ctx context.Context, _ Event) error {
	s.fn(ctx)
	return nil
}

type fakeProducer struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

func (f *fakeProducer) ProduceMessage(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	f.topic, f.key, f.value, f.headers = topic, key, value, headers
	return nil
}

func TestKafkaSink(t *testing.T) {
	producer := &fakeProducer{}
	evt := New(LoginSucceeded, "success")
	evt.UserID = "1000"

	require.NoError(t, NewKafkaSink(producer, "synapse.auth-events").Publish(context.Background(), evt))
	assert.Equal(t, "synapse.auth-events", producer.topic)
	assert.Equal(t, []byte("1000"), producer.key)
	assert.Equal(t, LoginSucceeded, producer.headers["event_type"])

	var decoded Event
	require.NoError(t, json.Unmarshal(producer.value, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
}

type fakeIndexer struct{ index, id string }

func (f *fakeIndexer) IndexDocument(_ context.Context, index, id string, _ interface{}) error {
	f.index, f.id = index, id
	return nil
}

func TestElasticsearchSink(t *testing.T) {
	idx := &fakeIndexer{}
	evt := New(RegisterDeviceExists, "failure")
	require.NoError(t, NewElasticsearchSink(idx, "synapse-auth-events").Publish(context.Background(), evt))
	assert.Equal(t, "synapse-auth-events", idx.index)
	assert.Equal(t, evt.ID, idx.id)
}

type fakeExecer struct {
	queries []string
	args    [][]interface{}
}

func (f *fakeExecer) Exec(_ context.Context, query string, args ...interface{}) error {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return nil
}

func TestClickhouseSink(t *testing.T) {
	conn := &fakeExecer{}
	sink := NewClickhouseSink(conn, "auth_events")
	ctx := context.Background()

	require.NoError(t, sink.EnsureTable(ctx))
	evt := New(AuthSessionFailed, "failure")
	evt.DeviceID = "abc"
	require.NoError(t, sink.Publish(ctx, evt))

	require.Len(t, conn.queries, 2)
	assert.True(t, strings.HasPrefix(conn.queries[0], "CREATE TABLE IF NOT EXISTS auth_events"))
	assert.Contains(t, conn.queries[1], "INSERT INTO auth_events")
	assert.Len(t, conn.args[1], 10)
	assert.Equal(t, "abc", conn.args[1][5])
}
