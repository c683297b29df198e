package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGetEnvDefault(t *testing.T) {
	if got := GetEnv("CONFIG_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("CONFIG_TEST_SET", "value")
	if got := GetEnv("CONFIG_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("CONFIG_TEST_INT", "42")
	if got := GetEnvInt("CONFIG_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("CONFIG_TEST_INT", "not-a-number")
	if got := GetEnvInt("CONFIG_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default 7 on parse failure, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("CONFIG_TEST_BOOL", "true")
	if !GetEnvBool("CONFIG_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	if GetEnvBool("CONFIG_TEST_BOOL_UNSET", false) {
		t.Fatal("expected default false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("CONFIG_TEST_DUR", "90s")
	if got := GetEnvDuration("CONFIG_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	t.Setenv("CONFIG_TEST_DUR", "garbage")
	if got := GetEnvDuration("CONFIG_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("expected default on parse failure, got %v", got)
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	if got := GetLogLevel(); got != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %v", got)
	}
	t.Setenv("LOG_LEVEL", "")
	if got := GetLogLevel(); got != logrus.InfoLevel {
		t.Fatalf("expected info default, got %v", got)
	}
}
