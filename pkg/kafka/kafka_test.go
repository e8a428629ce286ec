package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failures int
	calls    int
	panics   bool
}

func (h *flakyHandler) Topic() string { return "screen.requests" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panics {
		panic("boom")
	}
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

type recordingCommitter struct {
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *recordingCommitter) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

type recordingWriter struct {
	written []kafka.Message
	err     error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.written = append(w.written, msgs...)
	return w.err
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(opts...)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestProcessRetriesThenCommits(t *testing.T) {
	c := newTestConsumer(t)
	h := &flakyHandler{failures: 2}
	commit := &recordingCommitter{}

	c.process(h, &message{topic: h.Topic(), km: kafka.Message{Offset: 7, Value: []byte(`{}`)}}, commit)

	assert.Equal(t, 3, h.calls)
	require.Len(t, commit.committed, 1)
	assert.Equal(t, int64(7), commit.committed[0].Offset)
}

func TestProcessExhaustedWithoutDLQLeavesOffset(t *testing.T) {
	c := newTestConsumer(t)
	h := &flakyHandler{failures: 10}
	commit := &recordingCommitter{}

	c.process(h, &message{topic: h.Topic(), km: kafka.Message{Offset: 1}}, commit)

	assert.Equal(t, 3, h.calls)
	assert.Empty(t, commit.committed)
}

func TestProcessPanicGoesToDLQAndCommits(t *testing.T) {
	c := newTestConsumer(t, WithConsumerDLQ("screen.requests.dlq"))
	dlq := &recordingWriter{}
	c.dlq = dlq
	h := &flakyHandler{panics: true}
	commit := &recordingCommitter{}

	c.process(h, &message{topic: h.Topic(), km: kafka.Message{Key: []byte("k"), Value: []byte("v")}}, commit)

	require.Len(t, dlq.written, 1)
	assert.Equal(t, "screen.requests.dlq", dlq.written[0].Topic)
	assert.Equal(t, []byte("v"), dlq.written[0].Value)
	assert.Equal(t, "source_topic", dlq.written[0].Headers[0].Key)
	assert.Len(t, commit.committed, 1)
}

func TestProcessFailedDLQWriteLeavesOffset(t *testing.T) {
	c := newTestConsumer(t, WithConsumerDLQ("dlq"))
	c.dlq = &recordingWriter{err: errors.New("no leader")}
	commit := &recordingCommitter{}

	c.process(&flakyHandler{failures: 10}, &message{topic: "screen.requests"}, commit)
	assert.Empty(t, commit.committed)
}

func TestStartWithoutHandlers(t *testing.T) {
	c := newTestConsumer(t)
	assert.Error(t, c.Start())
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestToKafkaMessagesEncodesValues(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	msgs, total, err := toKafkaMessages("t", []Message{
		{Key: []byte("a"), Value: []byte("raw")},
		{Key: []byte("b"), Value: "text"},
		{Key: []byte("c"), Value: map[string]int{"n": 1}},
	}, ts)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "raw", string(msgs[0].Value))
	assert.Equal(t, "text", string(msgs[1].Value))
	assert.JSONEq(t, `{"n":1}`, string(msgs[2].Value))
	assert.Equal(t, "t", msgs[2].Topic)
	assert.Equal(t, ts, msgs[0].Time)
	assert.Equal(t, int64(3+4+7), total)
}

func TestToKafkaMessagesRejectsUnencodable(t *testing.T) {
	_, _, err := toKafkaMessages("t", []Message{{Value: make(chan int)}}, time.Now())
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	c, err := parseCompression("")
	require.NoError(t, err)
	assert.Equal(t, kafka.Gzip, c)

	c, err = parseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, kafka.Zstd, c)

	_, err = parseCompression("brotli")
	assert.Error(t, err)
}

func TestNewProducerValidates(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err, "brokers are required")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli"))
	assert.Error(t, err)
}

func TestWithWriterKeepsDefaultsForZeroFields(t *testing.T) {
	cfg := &ProducerConfig{Writer: WriterConfig{MaxAttempts: 3, BatchSize: 200, Linger: time.Second}}
	WithWriter(WriterConfig{BatchSize: 50})(cfg)
	assert.Equal(t, 50, cfg.Writer.BatchSize)
	assert.Equal(t, 3, cfg.Writer.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Writer.Linger)
}

func TestProducerWritesToHashBalancer(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	defer p.Close()
	_, ok := p.writer.Balancer.(*kafka.Hash)
	assert.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, p.writer.BatchTimeout)
}
