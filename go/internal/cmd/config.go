package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/corpsdraft/go/internal/draft/outbox"
	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	catalogSourceFile = "file"
	catalogSourceDB   = "db"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Draft struct {
		TurnTimeSeconds   int `yaml:"turn_time_seconds"`
		GraceSeconds      int `yaml:"grace_seconds"`
		FinalGraceSeconds int `yaml:"final_grace_seconds"`
		CountdownMS       int `yaml:"countdown_ms"`
	} `yaml:"draft"`

	Catalog struct {
		Source string `yaml:"source"`
		Path   string `yaml:"path"`
	} `yaml:"catalog"`

	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Outbox struct {
		NotifyChannel    string        `yaml:"notify_channel"`
		FallbackInterval time.Duration `yaml:"fallback_interval"`
	} `yaml:"outbox"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = "8080"

	def := room.DefaultConfig()
	c.Draft.TurnTimeSeconds = int(def.TurnTime / time.Second)
	c.Draft.GraceSeconds = int(def.Grace / time.Second)
	c.Draft.FinalGraceSeconds = int(def.FinalGrace / time.Second)
	c.Draft.CountdownMS = int(def.Countdown / time.Millisecond)

	c.Catalog.Source = catalogSourceDB
	c.Catalog.Path = "captions.yaml"

	js := outbox.DefaultJetStreamConfig()
	c.NATS.URL = js.URL
	c.NATS.Stream = js.StreamName
	c.NATS.SubjectPrefix = js.SubjectPrefix

	lc := outbox.DefaultListenerConfig()
	c.Outbox.NotifyChannel = lc.NotifyChannel
	c.Outbox.FallbackInterval = lc.FallbackInterval
	return &c
}

// loadConfig reads path over the defaults, then applies environment
// overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Catalog.Path = getEnv("CATALOG_PATH", config.Catalog.Path)
	config.Catalog.Source = getEnv("CATALOG_SOURCE", config.Catalog.Source)

	if config.Catalog.Source != catalogSourceFile && config.Catalog.Source != catalogSourceDB {
		return nil, fmt.Errorf("unknown catalog source %q", config.Catalog.Source)
	}
	return config, nil
}

// RoomConfig converts the draft section into session timings.
func (c *Config) RoomConfig() room.Config {
	rc := room.DefaultConfig()
	rc.TurnTime = time.Duration(c.Draft.TurnTimeSeconds) * time.Second
	rc.Grace = time.Duration(c.Draft.GraceSeconds) * time.Second
	rc.FinalGrace = time.Duration(c.Draft.FinalGraceSeconds) * time.Second
	rc.Countdown = time.Duration(c.Draft.CountdownMS) * time.Millisecond
	return rc
}

func (c *Config) JetStreamConfig() outbox.JetStreamConfig {
	js := outbox.DefaultJetStreamConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.Stream
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}

func (c *Config) ListenerConfig(dsn string) outbox.ListenerConfig {
	lc := outbox.DefaultListenerConfig()
	lc.DatabaseURL = dsn
	lc.NotifyChannel = c.Outbox.NotifyChannel
	if c.Outbox.FallbackInterval > 0 {
		lc.FallbackInterval = c.Outbox.FallbackInterval
	}
	return lc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
