package mq

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaHeaderCarrier_SetOverwrites(t *testing.T) {
	c := KafkaHeaderCarrier{}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}

func TestProduceMessage_PropagatesTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	require.NoError(t, ProduceMessage(ctx, w, []byte("o-1"), []byte(`{}`)))
	require.Len(t, w.msgs, 1)

	extracted := ExtractTraceContext(context.Background(), w.msgs[0].Headers)
	assert.Equal(t, traceID, trace.SpanContextFromContext(extracted).TraceID())
}

func TestFailureHandler_ForwardsWithOriginHeaders(t *testing.T) {
	w := &recordingWriter{}
	h := NewFailureHandler(w)

	h.Handle(context.Background(), kafka.Message{Topic: "order-placed", Partition: 2, Offset: 41, Key: []byte("k"), Value: []byte("v")}, errors.New("boom"))

	require.Len(t, w.msgs, 1)
	headers := map[string]string{}
	for _, hd := range w.msgs[0].Headers {
		headers[hd.Key] = string(hd.Value)
	}
	assert.Equal(t, "order-placed", headers[HeaderOriginalTopic])
	assert.Equal(t, "2", headers[HeaderOriginalPartition])
	assert.Equal(t, "41", headers[HeaderOriginalOffset])
	assert.Equal(t, "boom", headers[HeaderExceptionMessage])
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092"))
	assert.Nil(t, SplitBrokers(""))
}
