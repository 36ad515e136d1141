package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/candorlabs/liveinterview/pkg/config"
	"github.com/candorlabs/liveinterview/pkg/records"
	"github.com/candorlabs/liveinterview/runtime/protocol"
	"github.com/candorlabs/liveinterview/runtime/statestore"
)

// EnvPrefix namespaces environment overrides, e.g. LIVEINTERVIEW_SERVER_URL.
const EnvPrefix = "LIVEINTERVIEW"

// settingFlags maps setting keys to the flags that override them.
var settingFlags = map[string]string{
	"config":                "config",
	"server.url":            "server-url",
	"records.base_url":      "records-url",
	"resumption.store":      "store",
	"resumption.redis_addr": "redis-addr",
	"metrics.addr":          "metrics-addr",
	"telemetry.endpoint":    "otlp-endpoint",
	"transcript.output_dir": "transcript-dir",
	"camera.enabled":        "camera",
	"logging.level":         "log-level",
}

// newSettings layers LIVEINTERVIEW_* env vars under the command's flags.
func newSettings(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range settingFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	return v
}

// loadConfig reads the config file, if any, and applies env and flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := newSettings(cmd)

	cfg := config.Defaults()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applySettings(cfg, v)
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applySettings(cfg *config.Config, v *viper.Viper) {
	set := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	set("server.url", &cfg.Server.URL)
	set("records.base_url", &cfg.Records.BaseURL)
	set("resumption.store", &cfg.Resumption.Store)
	set("resumption.redis_addr", &cfg.Resumption.RedisAddr)
	set("metrics.addr", &cfg.Metrics.Addr)
	set("telemetry.endpoint", &cfg.Telemetry.Endpoint)
	set("transcript.output_dir", &cfg.Transcript.OutputDir)
	set("logging.level", &cfg.Logging.Level)
	if v.IsSet("camera.enabled") {
		cfg.Camera.Enabled = v.GetBool("camera.enabled")
	}
}

// openStore builds the configured handle store. The returned func releases it.
func openStore(cfg config.ResumptionConfig) (statestore.HandleStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case config.StoreMemory:
		return statestore.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts := []statestore.RedisOption{statestore.WithTTL(cfg.TTL)}
		if cfg.RedisPrefix != "" {
			opts = append(opts, statestore.WithPrefix(cfg.RedisPrefix))
		}
		return statestore.NewRedisStore(client, opts...), client.Close, nil
	case config.StoreFile, "":
		return statestore.NewFileStore(cfg.Path), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown resumption store %q", cfg.Store)
	}
}

// handleKey matches the key the session controller derives for interviewID.
func handleKey(interviewID int) string {
	if interviewID > 0 {
		return "interview:" + strconv.Itoa(interviewID)
	}
	return statestore.DefaultKey
}

// contextSource says where the interview context comes from.
type contextSource struct {
	InterviewID int
	ResumeFile  string
	JobFile     string
}

var errNoContext = errors.New("either --interview-id or both --resume-file and --job-file are required")

// resolveContext builds the context envelope from the records service or
// from local files.
func resolveContext(ctx context.Context, client *records.Client, src contextSource) (protocol.ContextMessage, error) {
	if src.InterviewID > 0 {
		return client.InterviewContext(ctx, src.InterviewID)
	}
	if src.ResumeFile == "" || src.JobFile == "" {
		return protocol.ContextMessage{}, errNoContext
	}
	resume, err := os.ReadFile(src.ResumeFile)
	if err != nil {
		return protocol.ContextMessage{}, fmt.Errorf("failed to read resume: %w", err)
	}
	job, err := os.ReadFile(src.JobFile)
	if err != nil {
		return protocol.ContextMessage{}, fmt.Errorf("failed to read job description: %w", err)
	}
	return protocol.ContextMessage{
		ResumeText:         strings.TrimSpace(string(resume)),
		JobDescriptionText: strings.TrimSpace(string(job)),
	}, nil
}
