package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gigpulse/internal/pkg/schema"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	HTTP         HTTPConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	Presence     PresenceConfig
	Chat         ChatConfig
	Notification NotificationConfig
	SMTP         SMTPConfig
	Queue        QueueConfig
	Log          LogConfig
}

type HTTPConfig struct {
	Addr string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type NATSConfig struct {
	URL           string
	User          string
	Password      string
	Name          string
	ReconnectWait time.Duration
}

// PresenceConfig holds the presence timings. They are tuned per deployment.
type PresenceConfig struct {
	HeartbeatInterval time.Duration
	InactivityTimeout time.Duration
	SyncInterval      time.Duration
}

// ChatConfig controls messaging behaviour. TypingTTL of zero disables the
// server-side typing sweep.
type ChatConfig struct {
	TypingTTL time.Duration
}

type NotificationConfig struct {
	Channels         []schema.Channel
	TemplateCacheTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// QueueConfig sizes the in-process asynq worker. Queues is a weight CSV
// such as "chat=6,notifications=3,default=1".
type QueueConfig struct {
	Concurrency int
	Queues      string
}

type LogConfig struct {
	Level  string
	Format string
}

// Defaults used when a variable is unset or malformed.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultInactivityTimeout = 5 * time.Minute
	DefaultSyncInterval      = time.Minute
	DefaultTypingTTL         = 10 * time.Second
	DefaultTemplateCacheTTL  = time.Minute
)

// LoadDotEnv loads a .env file if one exists. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}

	cfg := &Config{
		HTTP:     HTTPConfig{Addr: env.str("HTTP_ADDR", ":8080")},
		Database: DatabaseConfig{URL: env.str("DB_URL", "")},
		Redis:    RedisConfig{URL: env.str("REDIS_URL", "")},
		NATS: NATSConfig{
			URL:           env.str("NATS_URL", "nats://localhost:4222"),
			User:          env.str("NATS_USER", ""),
			Password:      env.str("NATS_PASS", ""),
			Name:          env.str("NATS_CLIENT_NAME", "gigpulse"),
			ReconnectWait: env.duration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Presence: PresenceConfig{
			HeartbeatInterval: env.duration("PRESENCE_HEARTBEAT_INTERVAL", DefaultHeartbeatInterval),
			InactivityTimeout: env.duration("PRESENCE_INACTIVITY_TIMEOUT", DefaultInactivityTimeout),
			SyncInterval:      env.duration("PRESENCE_SYNC_INTERVAL", DefaultSyncInterval),
		},
		Chat: ChatConfig{
			TypingTTL: env.duration("CHAT_TYPING_TTL", DefaultTypingTTL),
		},
		Notification: NotificationConfig{
			Channels:         env.channels("NOTIFICATION_CHANNELS", schema.AllChannels),
			TemplateCacheTTL: env.duration("NOTIFICATION_TEMPLATE_CACHE_TTL", DefaultTemplateCacheTTL),
		},
		SMTP: SMTPConfig{
			Host:     env.str("SMTP_HOST", ""),
			Port:     env.int("SMTP_PORT", 587),
			Username: env.str("SMTP_USERNAME", ""),
			Password: env.str("SMTP_PASSWORD", ""),
			From:     env.str("SMTP_FROM", "no-reply@gigpulse.local"),
		},
		Queue: QueueConfig{
			Concurrency: env.int("ASYNQ_CONCURRENCY", 10),
			Queues:      env.str("ASYNQ_QUEUES", "chat=6,notifications=3,default=1"),
		},
		Log: LogConfig{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: env.str("LOG_FORMAT", "json"),
		},
	}

	var errs []error
	if cfg.Database.URL == "" {
		errs = append(errs, errors.New("config: DB_URL environment variable is not set"))
	}
	if cfg.Redis.URL == "" {
		errs = append(errs, errors.New("config: REDIS_URL environment variable is not set"))
	}
	if cfg.Presence.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: PRESENCE_HEARTBEAT_INTERVAL must be positive"))
	}
	if cfg.Queue.Concurrency <= 0 {
		errs = append(errs, errors.New("config: ASYNQ_CONCURRENCY must be positive"))
	}
	if len(cfg.Notification.Channels) == 0 {
		errs = append(errs, errors.New("config: NOTIFICATION_CHANNELS enables no channel"))
	}
	return cfg, errors.Join(errs...)
}

// ChannelEnabled reports whether ch is in the enabled channel list.
func (c NotificationConfig) ChannelEnabled(ch schema.Channel) bool {
	for _, enabled := range c.Channels {
		if enabled == ch {
			return true
		}
	}
	return false
}

type envReader struct {
	getenv func(string) string
}

func (e envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) int(key string, def int) int {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func (e envReader) channels(key string, def []schema.Channel) []schema.Channel {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return append([]schema.Channel(nil), def...)
	}
	var out []schema.Channel
	seen := make(map[schema.Channel]bool)
	for _, part := range strings.Split(v, ",") {
		ch, err := schema.ParseChannel(part)
		if err != nil || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out
}
