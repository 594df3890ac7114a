package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hyperblend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultInactivityWindow, cfg.Client.InactivityWindow)
	assert.Equal(t, DefaultPollInterval, cfg.UI.PollInterval)
	assert.Equal(t, DefaultPollMaxAttempts, cfg.UI.PollMaxAttempts)
	assert.Equal(t, DefaultSearchDebounce, cfg.UI.SearchDebounce)
	assert.Equal(t, DefaultMessageTTL, cfg.UI.MessageTTL)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.MinIO.Enabled())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.UI.PollMaxAttempts = 3
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3, cfg.UI.PollMaxAttempts)
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"relative base url", func(c *Config) { c.Client.BaseURL = "/api" }, "client.base_url"},
		{"bad enrichment mode", func(c *Config) { c.Enrichment.Mode = "batch" }, "enrichment.mode"},
		{"zero poll attempts", func(c *Config) { c.UI.PollMaxAttempts = -1 }, "poll_max_attempts"},
		{"minio without bucket", func(c *Config) { c.MinIO.Endpoint = "localhost:9000"; c.MinIO.Bucket = "" }, "minio.bucket"},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"}; c.Kafka.Topic = " " }, "kafka.topic"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9090
  mode: release
neo4j:
  uri: bolt://graph:7687
  password: secret
redis:
  addr: redis:6379
kafka:
  brokers: ["k1:9092", "k2:9092"]
ui:
  poll_interval: 250ms
  poll_max_attempts: 5
enrichment:
  mode: sync
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.UI.PollInterval)
	assert.Equal(t, 5, cfg.UI.PollMaxAttempts)
	assert.Equal(t, "sync", cfg.Enrichment.Mode)
	assert.Equal(t, DefaultSearchDebounce, cfg.UI.SearchDebounce)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "server:\n  port: 9090\n")
	t.Setenv("HYPERBLEND_SERVER_PORT", "7070")
	t.Setenv("HYPERBLEND_CLIENT_BASE_URL", "http://api.internal:8080/api")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://api.internal:8080/api", cfg.Client.BaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HYPERBLEND_NEO4J_URI", "neo4j://db:7687")
	t.Setenv("HYPERBLEND_UI_POLL_MAX_ATTEMPTS", "12")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "neo4j://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, 12, cfg.UI.PollMaxAttempts)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeYAML(t, "server:\n  mode: production\n")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_ReportsChanges(t *testing.T) {
	path := writeYAML(t, "server:\n  port: 9090\n")

	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Server.Port == 9191 {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
