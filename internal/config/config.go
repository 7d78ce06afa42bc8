package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/zeusync/eca/internal/core/events/bus"
	"github.com/zeusync/eca/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds daemon settings. Values are read from an optional KEY=VALUE
// file first, then from the environment, which wins.
type Config struct {
	// ListenAddr is where the websocket feed listens, e.g. ":8080".
	ListenAddr string `config:"ECA_LISTEN_ADDR"`
	// SchemaFile is a JSON or YAML schema document registered at start-up.
	SchemaFile string `config:"ECA_SCHEMA_FILE"`
	LogLevel   string `config:"ECA_LOG_LEVEL"`
	// ArbiterEnabled routes proposals of the global collection through the arbiter.
	ArbiterEnabled bool `config:"ECA_ARBITER_ENABLED"`
	// CommitInterval is a Go duration string such as "50ms".
	CommitInterval string `config:"ECA_COMMIT_INTERVAL"`
	// FeedBuffer is the number of messages buffered per feed client.
	FeedBuffer int `config:"ECA_FEED_BUFFER"`
	// FeedToken, when set, is required from feed clients.
	FeedToken string `config:"ECA_FEED_TOKEN"`
	Topic     string `config:"ECA_TOPIC"`
	// MirrorSkip is a comma separated list of runtime event types the mirror
	// does not publish, e.g. "eca.attribute.proposed".
	MirrorSkip string `config:"ECA_MIRROR_SKIP"`
}

func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		LogLevel:       "info",
		ArbiterEnabled: false,
		CommitInterval: "50ms",
		FeedBuffer:     256,
		Topic:          "world",
	}
}

// Load starts from Default and overlays file (when it exists) and the environment.
func Load(file string) (Config, error) {
	cfg := Default()

	builder := jlconfig.FromEnv()
	if file != "" {
		if _, err := os.Stat(file); err == nil {
			builder = jlconfig.From(file).FromEnv()
		}
	}
	if err := builder.To(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: ECA_LISTEN_ADDR is empty", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: ECA_LOG_LEVEL: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	if c.FeedBuffer <= 0 {
		return fmt.Errorf("%w: ECA_FEED_BUFFER must be positive", ErrInvalidConfig)
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: ECA_TOPIC is empty", ErrInvalidConfig)
	}
	for _, typ := range c.SkippedTypes() {
		if !slices.Contains(bus.Types, typ) {
			return fmt.Errorf("%w: ECA_MIRROR_SKIP: unknown event type %q", ErrInvalidConfig, typ)
		}
	}
	return nil
}

// SkippedTypes splits MirrorSkip, ignoring blanks.
func (c Config) SkippedTypes() []string {
	var out []string
	for _, typ := range strings.Split(c.MirrorSkip, ",") {
		if typ = strings.TrimSpace(typ); typ != "" {
			out = append(out, typ)
		}
	}
	return out
}

// Interval parses CommitInterval.
func (c Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.CommitInterval)
	if err != nil {
		return 0, fmt.Errorf("%w: ECA_COMMIT_INTERVAL: %v", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: ECA_COMMIT_INTERVAL must be positive", ErrInvalidConfig)
	}
	return d, nil
}

// Level returns the parsed log level. Call Validate first.
func (c Config) Level() log.Level {
	l, _ := log.ParseLevel(c.LogLevel)
	return l
}
