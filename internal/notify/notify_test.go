package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usersvc/internal/domain"
	"usersvc/internal/notify"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testUser() domain.User {
	return domain.User{
		ID:        uuid.New(),
		Email:     "a@x.com",
		Username:  "alice",
		CreatedAt: time.Date(2026, 2, 19, 17, 16, 37, 0, time.UTC),
	}
}

func TestKafkaNotifierPublishesEvent(t *testing.T) {
	writer := &fakeWriter{}
	notifier := notify.NewKafkaNotifier(writer, time.Second, logrus.New())
	user := testUser()

	// a cancelled request context must not drop the event
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier.UserCreated(ctx, user)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, user.ID.String(), string(msg.Key))

	var event notify.UserCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, notify.EventUserCreated, event.Type)
	assert.Equal(t, user.ID.String(), event.UserID)
	assert.Equal(t, "a@x.com", event.Email)
	assert.Equal(t, "alice", event.Username)
	assert.True(t, user.CreatedAt.Equal(event.CreatedAt))

	require.NoError(t, notifier.Close())
	assert.True(t, writer.closed)
}

func TestKafkaNotifierLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	notifier := notify.NewKafkaNotifier(&fakeWriter{err: errors.New("broker down")}, time.Second, logger)
	notifier.UserCreated(context.Background(), testUser())

	assert.Contains(t, buf.String(), "broker down")
}

func TestMultiAndCollecting(t *testing.T) {
	first, second := notify.NewCollecting(), notify.NewCollecting()
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	user := testUser()
	notify.Multi{first, second, notify.NewLogNotifier(logger)}.UserCreated(context.Background(), user)

	for _, c := range []*notify.Collecting{first, second} {
		got, ok := c.Get("a@x.com")
		require.True(t, ok)
		assert.Equal(t, user, got)
		assert.Equal(t, 1, c.Len())
	}
	assert.Contains(t, buf.String(), "user created")
	assert.Contains(t, buf.String(), user.ID.String())
}
