package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"usersvc/internal/domain"
)

const EventUserCreated = "user.created"

// UserCreatedEvent is the JSON payload published for each new user.
type UserCreatedEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageWriter is the part of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes user.created events keyed by user id.
type KafkaNotifier struct {
	writer  MessageWriter
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewKafkaWriter builds a writer for topic that balances by message key.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaNotifier(writer MessageWriter, timeout time.Duration, logger logrus.FieldLogger) *KafkaNotifier {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaNotifier{
		writer:  writer,
		timeout: timeout,
		logger:  logger.WithField("component", "kafka-notifier"),
	}
}

func (n *KafkaNotifier) UserCreated(ctx context.Context, user domain.User) {
	payload, err := json.Marshal(UserCreatedEvent{
		Type:      EventUserCreated,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		n.logger.Errorf("encode %s event: %v", EventUserCreated, err)
		return
	}

	// the request context may already be done once the response is written
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err = n.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(user.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventUserCreated)},
		},
	})
	if err != nil {
		n.logger.WithField("user_id", user.ID.String()).Errorf("publish %s: %v", EventUserCreated, err)
		return
	}
	n.logger.WithField("user_id", user.ID.String()).Debugf("published %s", EventUserCreated)
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
