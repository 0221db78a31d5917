package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort    int
	MetricsPort int
	ServiceName string

	KafkaBrokers  []string
	OutcomesTopic string

	OTLPEndpoint string

	// TraceSampleRatio applies to root spans; inbound traceparent headers win.
	TraceSampleRatio float64

	AiSensyEndpoint     string
	AiSensyAPIKey       string
	AiSensyCampaignName string
	AiSensyTimeout      time.Duration

	// LinkButton repeats the order number as a fourth template parameter for
	// campaigns whose template carries a tracking link button.
	LinkButton bool

	WebhookSecret string
}

func LoadConfig(service string) (*Config, error) {
	cfg := &Config{ServiceName: service}

	httpPort, err := getEnvInt("HTTP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.HTTPPort = httpPort

	metricsPort, err := getEnvInt("METRICS_PORT", httpPort+1000)
	if err != nil {
		return nil, err
	}
	cfg.MetricsPort = metricsPort

	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")
	ratio, err := getEnvFloat("TRACE_SAMPLE_RATIO", 1)
	if err != nil {
		return nil, err
	}
	cfg.TraceSampleRatio = ratio

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.OutcomesTopic = getEnv("BRIDGE_EVENTS_TOPIC", "bridge.outcomes")

	cfg.AiSensyEndpoint = getEnv("AISENSY_ENDPOINT", "https://backend.aisensy.com/campaign/t1/api/v2")
	cfg.AiSensyAPIKey = os.Getenv("AISENSY_API_KEY")
	cfg.AiSensyCampaignName = getEnv("AISENSY_CAMPAIGN_NAME", "zippee_order_status_update")

	timeout, err := getEnvDuration("AISENSY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.AiSensyTimeout = timeout

	linkButton, err := getEnvBool("AISENSY_LINK_BUTTON", false)
	if err != nil {
		return nil, err
	}
	cfg.LinkButton = linkButton

	cfg.WebhookSecret = os.Getenv("ZIPPEE_WEBHOOK_SECRET")

	return cfg, nil
}

// Validate reports settings the bridge cannot start without.
func (c *Config) Validate() error {
	if c.AiSensyAPIKey == "" {
		return errors.New("AISENSY_API_KEY must be provided")
	}
	if c.AiSensyCampaignName == "" {
		return errors.New("AISENSY_CAMPAIGN_NAME must not be empty")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0,1], got %v", c.TraceSampleRatio)
	}
	if c.AiSensyTimeout <= 0 {
		return fmt.Errorf("AISENSY_TIMEOUT must be positive, got %s", c.AiSensyTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}
