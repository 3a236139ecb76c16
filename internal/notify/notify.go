package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"usersvc/internal/domain"
)

// UserNotifier is told about every user that was created successfully.
// Implementations handle their own failures; creation never fails because a
// notification did.
type UserNotifier interface {
	UserCreated(ctx context.Context, user domain.User)
}

// LogNotifier writes one structured log line per created user.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) UserCreated(_ context.Context, user domain.User) {
	n.logger.WithFields(logrus.Fields{
		"user_id":  user.ID.String(),
		"username": user.Username,
	}).Info("user created")
}

// Collecting keeps created users in memory, keyed by email.
type Collecting struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewCollecting() *Collecting {
	return &Collecting{users: make(map[string]domain.User)}
}

func (c *Collecting) UserCreated(_ context.Context, user domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.Email] = user
}

// Get returns the user notified for email, if any.
func (c *Collecting) Get(email string) (domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	user, ok := c.users[email]
	return user, ok
}

func (c *Collecting) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// Multi fans a notification out to every notifier in order.
type Multi []UserNotifier

func (m Multi) UserCreated(ctx context.Context, user domain.User) {
	for _, n := range m {
		n.UserCreated(ctx, user)
	}
}
