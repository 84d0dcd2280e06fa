package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
  quota_bytes: 1048576
remote:
  base_url: "http://catalog.local:8000"
mqtt:
  broker:
    host: "broker.local"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Database.QuotaBytes != 1048576 {
		t.Errorf("Database.QuotaBytes = %d, want 1048576", cfg.Database.QuotaBytes)
	}
	if cfg.Remote.BaseURL != "http://catalog.local:8000" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	// Keys absent from the file keep their defaults.
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Preview.Velocity != 100 {
		t.Errorf("Preview.Velocity = %d, want 100", cfg.Preview.Velocity)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: ""
api:
  port: 8080
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty database.path, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}, wantErr: false},
		{
			name:    "missing database path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "negative quota",
			modify:  func(c *Config) { c.Database.QuotaBytes = -1 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			modify:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "tls without cert",
			modify:  func(c *Config) { c.API.TLS.Enabled = true },
			wantErr: true,
		},
		{
			name:    "remote url without scheme",
			modify:  func(c *Config) { c.Remote.BaseURL = "catalog.local" },
			wantErr: true,
		},
		{
			name:    "remote https url",
			modify:  func(c *Config) { c.Remote.BaseURL = "https://catalog.example.com" },
			wantErr: false,
		},
		{
			name:    "influx enabled without bucket",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "http://localhost:8086" },
			wantErr: true,
		},
		{
			name:    "preview channel out of range",
			modify:  func(c *Config) { c.Preview.DefaultChannel = 17 },
			wantErr: true,
		},
		{
			name:    "preview velocity zero",
			modify:  func(c *Config) { c.Preview.Velocity = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = ""
	cfg.API.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"database.path", "api.port"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate() error %q missing %q", msg, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Remote:   RemoteConfig{Timeout: 5},
		Sessions: SessionsConfig{TTL: 120},
		Preview:  PreviewConfig{NoteDurationMS: 250},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetRemoteTimeout(); got != 5*time.Second {
		t.Errorf("GetRemoteTimeout() = %v, want 5s", got)
	}
	if got := cfg.GetSessionTTL(); got != 2*time.Minute {
		t.Errorf("GetSessionTTL() = %v, want 2m", got)
	}
	if got := cfg.GetNoteDuration(); got != 250*time.Millisecond {
		t.Errorf("GetNoteDuration() = %v, want 250ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("MIDNAM_DATABASE_PATH", "/custom/path.db")
	t.Setenv("MIDNAM_DATABASE_QUOTA_BYTES", "4096")
	t.Setenv("MIDNAM_API_HOST", "192.168.1.1")
	t.Setenv("MIDNAM_API_PORT", "9000")
	t.Setenv("MIDNAM_REMOTE_BASE_URL", "http://remote.local")
	t.Setenv("MIDNAM_MQTT_HOST", "mqtt.example.com")
	t.Setenv("MIDNAM_MQTT_USERNAME", "testuser")
	t.Setenv("MIDNAM_MQTT_PASSWORD", "testpass")
	t.Setenv("MIDNAM_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("MIDNAM_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.Database.QuotaBytes != 4096 {
		t.Errorf("Database.QuotaBytes = %d, want 4096", cfg.Database.QuotaBytes)
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Remote.BaseURL != "http://remote.local" {
		t.Errorf("Remote.BaseURL = %q, want %q", cfg.Remote.BaseURL, "http://remote.local")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestApplyEnvOverrides_IgnoresBadNumbers(t *testing.T) {
	cfg := Default()
	t.Setenv("MIDNAM_API_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8000 {
		t.Errorf("API.Port = %d, want default 8000", cfg.API.Port)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path == "" {
		t.Error("Default should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("Default MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8000 {
		t.Errorf("Default API.Port = %d, want 8000", cfg.API.Port)
	}
	if cfg.Remote.BaseURL != "" {
		t.Errorf("Default Remote.BaseURL = %q, want offline default", cfg.Remote.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}
