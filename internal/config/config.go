package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr          string        // LEADRELAY_HTTP_ADDR (default ":8080")
	NATSURL           string        // LEADRELAY_NATS_URL (optional, empty = no mirror bus)
	AccessLogCap      int           // LEADRELAY_ACCESS_LOG_CAP (default 256)
	KeepaliveInterval time.Duration // LEADRELAY_KEEPALIVE_INTERVAL (default 15s)
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr: envOrDefault("LEADRELAY_HTTP_ADDR", ":8080"),
		NATSURL:  os.Getenv("LEADRELAY_NATS_URL"),
	}

	capStr := envOrDefault("LEADRELAY_ACCESS_LOG_CAP", "256")
	n, err := strconv.Atoi(capStr)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("LEADRELAY_ACCESS_LOG_CAP: must be a positive integer, got %q", capStr)
	}
	c.AccessLogCap = n

	keepaliveStr := envOrDefault("LEADRELAY_KEEPALIVE_INTERVAL", "15s")
	d, err := time.ParseDuration(keepaliveStr)
	if err != nil {
		return nil, fmt.Errorf("LEADRELAY_KEEPALIVE_INTERVAL: %w", err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("LEADRELAY_KEEPALIVE_INTERVAL: must be positive, got %q", keepaliveStr)
	}
	c.KeepaliveInterval = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
