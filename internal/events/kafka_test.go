package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records messages instead of talking to a broker.
type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublish(t *testing.T) {
	w := &fakeWriter{}
	k := NewKafkaWithWriter(w)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := k.Publish(context.Background(), Event{
		Type: BookmarkSaved, PostID: "p1", UserID: "u1", SavedID: "s1", OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)

	msg := w.written[0]
	assert.Equal(t, "p1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "bookmark.saved", string(msg.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, BookmarkSaved, got.Type)
	assert.Equal(t, "s1", got.SavedID)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublish_WriteError(t *testing.T) {
	k := NewKafkaWithWriter(&fakeWriter{err: errors.New("broker down")})

	err := k.Publish(context.Background(), Event{Type: PostDeleted, PostID: "p1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafka_Validates(t *testing.T) {
	_, err := NewKafka(KafkaConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "blog-events"})
	require.NoError(t, err)
	assert.NoError(t, k.Close())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), Event{Type: PostCreated}))
	require.NoError(t, r.Publish(context.Background(), Event{Type: PostUpdated}))
	assert.Equal(t, []Type{PostCreated, PostUpdated}, r.Types())

	r.Err = errors.New("nope")
	assert.Error(t, r.Publish(context.Background(), Event{Type: PostDeleted}))
	assert.Len(t, r.Events(), 2)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
