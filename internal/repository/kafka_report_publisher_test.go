package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	sent   []captured
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.sent = append(f.sent, captured{topic, key, value})
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaReportPublisherKeysByRunID(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.Point, 10)
	for i := range points {
		points[i] = models.Point{Date: start.AddDate(0, 0, i), Value: float64(i)}
	}
	report := &models.Report{
		RunID:      "2b1f6a0e-8d59-4c59-9a51-0c8f7e3b6d11",
		Indicators: []models.Indicator{{Name: models.Total, Series: models.NewTimeSeries(points)}},
	}

	prod := &fakeProducer{}
	sink := NewKafkaReportPublisher(prod, "breadth.reports", 4)
	assert.Equal(t, "kafka", sink.Name())
	require.NoError(t, sink.Publish(context.Background(), report))

	require.Len(t, prod.sent, 1)
	msg := prod.sent[0]
	assert.Equal(t, "breadth.reports", msg.topic)
	assert.Equal(t, report.RunID, string(msg.key))

	b, err := json.Marshal(msg.value)
	require.NoError(t, err)
	var decoded struct {
		Indicators []struct {
			Series []models.Point `json:"series"`
		} `json:"indicators"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Indicators, 1)
	assert.Len(t, decoded.Indicators[0].Series, 4)

	require.NoError(t, sink.(*KafkaReportPublisher).Close())
	assert.True(t, prod.closed)
}
