package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	for _, key := range []string{
		"AWS_REGION", "INFLUXDB_ENDPOINT", "INFLUXDB_PORT", "HEALTH_CHECK_PORT",
		"DEFAULT_WATCHLIST", "LOG_LEVEL", "ENABLE_REALTIME", "ENABLE_SCHEDULER",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "us-west-2", cfg.AWSRegion)
	require.Equal(t, 8181, cfg.InfluxDBPort)
	require.Equal(t, 8080, cfg.HealthCheckPort)
	require.Equal(t, []string{"AAPL", "TSLA", "NVDA", "AMZN", "GOOGL"}, cfg.DefaultWatchlist)
	require.True(t, cfg.EnableRealtime)
	require.True(t, cfg.EnableScheduler)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("DEFAULT_WATCHLIST", " msft, nflx ,msft")
	t.Setenv("HEALTH_CHECK_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"MSFT", "NFLX", "MSFT"}, cfg.DefaultWatchlist)
	require.Equal(t, 9090, cfg.HealthCheckPort)
}

func TestValidateRejectsBadPortsAndLogLevel(t *testing.T) {
	cfg := &Config{HealthCheckPort: 8080, InfluxDBPort: 8181, LogLevel: "info"}
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.HealthCheckPort = 0
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.InfluxDBPort = 70000
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.LogLevel = "verbose"
	require.Error(t, bad.Validate())
}
