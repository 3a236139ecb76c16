package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr            string
		ShutdownTimeout time.Duration
	}
	Log struct {
		Level string
	}
	Database struct {
		// Driver is "sqlite" or "postgres".
		Driver          string
		DSN             string
		AutoMigrate     bool
		MaxConns        int32
		MaxConnLifetime time.Duration
	}
	Redis struct {
		// Addr enables the lookup cache when set.
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}
	Kafka struct {
		// Brokers enables user.created publishing when set.
		Brokers      []string
		Topic        string
		WriteTimeout time.Duration
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// optional; never overrides variables already in the environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("USERSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/users.db")
	v.SetDefault("database.automigrate", true)
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.maxconnlifetime", time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "users.events")
	v.SetDefault("kafka.writetimeout", 5*time.Second)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, fmt.Errorf("database dsn is required")
	}
	return cfg, nil
}
