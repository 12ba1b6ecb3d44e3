package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestPublishEncodesValues(t *testing.T) {
	w := &memWriter{}
	p := newProducer(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "t", []byte("k1"), []byte("raw")))
	require.NoError(t, p.Publish(context.Background(), "t", []byte("k2"), "text"))
	require.NoError(t, p.Publish(context.Background(), "t", []byte("k3"), map[string]int{"a": 1}))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, "raw", string(w.msgs[0].Value))
	assert.Equal(t, "text", string(w.msgs[1].Value))
	assert.JSONEq(t, `{"a":1}`, string(w.msgs[2].Value))
	assert.Equal(t, "t", w.msgs[2].Topic)
	assert.Equal(t, "k3", string(w.msgs[2].Key))
}

func TestPublishWrapsWriterError(t *testing.T) {
	p := newProducer(&memWriter{err: errors.New("leader not available")}, "gzip")
	err := p.Publish(context.Background(), "t", nil, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
