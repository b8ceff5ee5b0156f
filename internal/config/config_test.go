package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ACT_HOST", "ACT_PORT", "STEP_MS", "REPLY_TIMEOUT_MS", "TOTAL_STEPS",
		"LOG_DIR", "LOG_FORMAT", "LOG_LEVEL", "METRICS_ADDR",
		"MDNS_ENABLE", "MDNS_NAME", "TCPSTAT_INTERVAL_MS",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("act")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ActHost != "act" || c.ActPort != 5001 {
		t.Fatalf("unexpected host/port: %+v", c)
	}
	if c.StepPeriod != 10*time.Millisecond || c.ReplyTimeout != 2*time.Millisecond {
		t.Fatalf("unexpected timing defaults: %+v", c)
	}
	if c.TotalSteps != 1000 || c.LogDir != "/app/logs" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.LogFormat != "text" || c.LogLevel != "info" {
		t.Fatalf("unexpected log defaults: %+v", c)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("ACT_HOST", "10.0.0.5")
	os.Setenv("ACT_PORT", "6001")
	os.Setenv("STEP_MS", "5")
	os.Setenv("REPLY_TIMEOUT_MS", "1")
	os.Setenv("TOTAL_STEPS", "50")
	os.Setenv("LOG_DIR", "/tmp/logs")
	os.Setenv("LOG_FORMAT", "json")
	os.Setenv("MDNS_ENABLE", "true")
	os.Setenv("TCPSTAT_INTERVAL_MS", "100")

	c, err := Load("0.0.0.0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ActHost != "10.0.0.5" || c.ActPort != 6001 {
		t.Fatalf("unexpected overridden host/port: %+v", c)
	}
	if c.StepPeriod != 5*time.Millisecond || c.ReplyTimeout != 1*time.Millisecond {
		t.Fatalf("unexpected overridden timing: %+v", c)
	}
	if c.TotalSteps != 50 || c.LogDir != "/tmp/logs" || c.LogFormat != "json" {
		t.Fatalf("unexpected overridden values: %+v", c)
	}
	if !c.MDNSEnable {
		t.Fatalf("expected MDNSEnable true")
	}
	if c.TCPStatInterval != 100*time.Millisecond {
		t.Fatalf("unexpected tcpstat interval: %v", c.TCPStatInterval)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	clearEnv(t)
	os.Setenv("ACT_PORT", "not-a-port")
	if _, err := Load("act"); err == nil {
		t.Fatalf("expected ConfigError for bad ACT_PORT")
	} else if ce, ok := err.(*ConfigError); !ok || ce.Key != "ACT_PORT" {
		t.Fatalf("expected *ConfigError for ACT_PORT, got %v", err)
	}
}

func TestLoadRejectsZeroStepMs(t *testing.T) {
	clearEnv(t)
	os.Setenv("STEP_MS", "0")
	if _, err := Load("act"); err == nil {
		t.Fatalf("expected ConfigError for STEP_MS=0")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	clearEnv(t)
	os.Setenv("LOG_FORMAT", "xml")
	if _, err := Load("act"); err == nil {
		t.Fatalf("expected ConfigError for invalid LOG_FORMAT")
	}
}

func TestLoadAcceptsDegenerateStepTimeoutRelation(t *testing.T) {
	clearEnv(t)
	os.Setenv("STEP_MS", "1")
	os.Setenv("REPLY_TIMEOUT_MS", "5")
	c, err := Load("act")
	if err != nil {
		t.Fatalf("Load should accept STEP_MS < REPLY_TIMEOUT_MS (degenerate but legal): %v", err)
	}
	if c.StepPeriod >= c.ReplyTimeout {
		t.Fatalf("expected StepPeriod < ReplyTimeout in this scenario")
	}
}
