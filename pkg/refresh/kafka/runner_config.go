package kafka

import (
	"strings"
	"time"
)

type SASLConfig struct {
	Enable    bool
	Mechanism string
	Username  string
	Password  string
}

type Config struct {
	Enabled bool

	Brokers []string
	Topic   string
	GroupID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool

	TLS  bool
	SASL SASLConfig
}

// DefaultConfig fills the consumer group timings; brokers is a comma list.
func DefaultConfig(brokers, topic, group string) Config {
	if topic == "" {
		topic = "sheet-updates"
	}
	if group == "" {
		group = "mapsheet-refresh"
	}
	return Config{
		Enabled:          true,
		Brokers:          split(brokers),
		Topic:            topic,
		GroupID:          group,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    false,
	}
}

func split(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
