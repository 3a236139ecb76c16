package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"usersvc/internal/cache"
	"usersvc/internal/domain"
	"usersvc/internal/migrations"
	"usersvc/internal/repository"
	"usersvc/internal/repository/repositorytest"
	"usersvc/internal/repository/sqlite"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// An unreachable Redis must not turn lookups into errors.
func TestRedisDownFallsThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	user := repositorytest.NewUser(t, "a@x.com", "alice")
	backend := new(mockRepository)
	backend.On("Create", mock.Anything, user).Return(nil)
	backend.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	backend.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil)
	backend.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	repo := cache.NewUserRepository(backend, rdb, time.Minute, quietLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	got, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = repo.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	backend.AssertExpectations(t)
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestUserRepositoryOverSQLite(t *testing.T) {
	rdb := startRedis(t)

	repositorytest.Run(t, func(t *testing.T) repository.UserRepository {
		require.NoError(t, rdb.FlushDB(context.Background()).Err())

		path := filepath.Join(t.TempDir(), "users.db")
		runner, err := migrations.NewRunner(migrations.DialectSQLite, path, quietLogger())
		require.NoError(t, err)
		require.NoError(t, runner.Up())
		require.NoError(t, runner.Close())

		db, err := sqlite.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		return cache.NewUserRepository(sqlite.NewUserRepository(db), rdb, time.Minute, quietLogger())
	})
}

func TestLookupsServedFromCache(t *testing.T) {
	rdb := startRedis(t)
	require.NoError(t, rdb.FlushDB(context.Background()).Err())

	user := repositorytest.NewUser(t, "a@x.com", "alice")
	backend := new(mockRepository)
	backend.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()

	repo := cache.NewUserRepository(backend, rdb, time.Minute, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.True(t, user.CreatedAt.Equal(got.CreatedAt))
	}

	// the id lookup primed the email and username indexes
	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	got, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	backend.AssertExpectations(t)
}
