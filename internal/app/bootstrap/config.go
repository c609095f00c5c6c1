package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID  string
	InstanceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns int32

	KafkaConsumerGroup         string
	TopicParticipantEvents     string
	TopicNotificationLifecycle string
	TopicNotificationCommands  string
	TopicNotificationState     string
	TopicProviderMessages      string

	ArchivalBaseURL       string
	PersonRegistryBaseURL string
	CaseBaseURL           string

	TokenURL          string
	TokenClientID     string
	TokenClientSecret string
	TokenScope        string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	GraceWindow      time.Duration
	MessageValidity  time.Duration
	RenotifyInterval time.Duration
	SweepBatchSize   int
	ChannelCacheTTL  time.Duration

	LeaderElectionEnabled bool
	LeaderLeaseTTL        time.Duration

	ConsolidationPeriod time.Duration
	ResendPeriod        time.Duration
	WindowSweepPeriod   time.Duration
	EventRetryPeriod    time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL                string   `yaml:"postgres_url"`
		RedisURL                   string   `yaml:"redis_url"`
		KafkaBrokers               []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup         string   `yaml:"kafka_consumer_group"`
		TopicParticipantEvents     string   `yaml:"topic_participant_events"`
		TopicNotificationLifecycle string   `yaml:"topic_notification_lifecycle"`
		TopicNotificationCommands  string   `yaml:"topic_notification_commands"`
		TopicNotificationState     string   `yaml:"topic_notification_state"`
		TopicProviderMessages      string   `yaml:"topic_provider_messages"`
		ArchivalBaseURL            string   `yaml:"archival_base_url"`
		PersonRegistryBaseURL      string   `yaml:"person_registry_base_url"`
		CaseBaseURL                string   `yaml:"case_base_url"`
		TokenURL                   string   `yaml:"token_url"`
		TokenClientID              string   `yaml:"token_client_id"`
		TokenScope                 string   `yaml:"token_scope"`
	} `yaml:"dependencies"`
	Scheduling struct {
		LeaderElectionEnabled *bool `yaml:"leader_election_enabled"`
		LeaderLeaseSeconds    int   `yaml:"leader_lease_seconds"`
		GraceWindowMinutes    int   `yaml:"grace_window_minutes"`
		ConsolidationMinutes  int   `yaml:"consolidation_period_minutes"`
		ResendMinutes         int   `yaml:"resend_period_minutes"`
		WindowSweepMinutes    int   `yaml:"window_sweep_period_minutes"`
		EventRetryMinutes     int   `yaml:"event_retry_period_minutes"`
	} `yaml:"scheduling"`
}

func LoadConfig(path string) (Config, error) {
	hostname, _ := os.Hostname()
	cfg := Config{
		ServiceID:                  "followup-service",
		InstanceID:                 hostname,
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		MaxDBConns:                 20,
		KafkaConsumerGroup:         "followup-service",
		TopicParticipantEvents:     "participant.events",
		TopicNotificationLifecycle: "notification.lifecycle",
		TopicNotificationCommands:  "notification.commands",
		TopicNotificationState:     "followup.notification-state",
		TopicProviderMessages:      "provider.messages",
		OutboxPollInterval:         2 * time.Second,
		OutboxBatchSize:            100,
		GraceWindow:                30 * time.Minute,
		MessageValidity:            14 * 24 * time.Hour,
		RenotifyInterval:           7 * 24 * time.Hour,
		SweepBatchSize:             200,
		ChannelCacheTTL:            time.Hour,
		LeaderElectionEnabled:      true,
		LeaderLeaseTTL:             30 * time.Second,
		ConsolidationPeriod:        5 * time.Minute,
		ResendPeriod:               15 * time.Minute,
		WindowSweepPeriod:          time.Minute,
		EventRetryPeriod:           5 * time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.TopicParticipantEvents != "" {
			cfg.TopicParticipantEvents = f.Dependencies.TopicParticipantEvents
		}
		if f.Dependencies.TopicNotificationLifecycle != "" {
			cfg.TopicNotificationLifecycle = f.Dependencies.TopicNotificationLifecycle
		}
		if f.Dependencies.TopicNotificationCommands != "" {
			cfg.TopicNotificationCommands = f.Dependencies.TopicNotificationCommands
		}
		if f.Dependencies.TopicNotificationState != "" {
			cfg.TopicNotificationState = f.Dependencies.TopicNotificationState
		}
		if f.Dependencies.TopicProviderMessages != "" {
			cfg.TopicProviderMessages = f.Dependencies.TopicProviderMessages
		}
		cfg.ArchivalBaseURL = f.Dependencies.ArchivalBaseURL
		cfg.PersonRegistryBaseURL = f.Dependencies.PersonRegistryBaseURL
		cfg.CaseBaseURL = f.Dependencies.CaseBaseURL
		cfg.TokenURL = f.Dependencies.TokenURL
		cfg.TokenClientID = f.Dependencies.TokenClientID
		cfg.TokenScope = f.Dependencies.TokenScope
		if f.Scheduling.LeaderElectionEnabled != nil {
			cfg.LeaderElectionEnabled = *f.Scheduling.LeaderElectionEnabled
		}
		if f.Scheduling.LeaderLeaseSeconds > 0 {
			cfg.LeaderLeaseTTL = time.Duration(f.Scheduling.LeaderLeaseSeconds) * time.Second
		}
		if f.Scheduling.GraceWindowMinutes > 0 {
			cfg.GraceWindow = time.Duration(f.Scheduling.GraceWindowMinutes) * time.Minute
		}
		if f.Scheduling.ConsolidationMinutes > 0 {
			cfg.ConsolidationPeriod = time.Duration(f.Scheduling.ConsolidationMinutes) * time.Minute
		}
		if f.Scheduling.ResendMinutes > 0 {
			cfg.ResendPeriod = time.Duration(f.Scheduling.ResendMinutes) * time.Minute
		}
		if f.Scheduling.WindowSweepMinutes > 0 {
			cfg.WindowSweepPeriod = time.Duration(f.Scheduling.WindowSweepMinutes) * time.Minute
		}
		if f.Scheduling.EventRetryMinutes > 0 {
			cfg.EventRetryPeriod = time.Duration(f.Scheduling.EventRetryMinutes) * time.Minute
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.TopicParticipantEvents = envOrDefault("TOPIC_PARTICIPANT_EVENTS", cfg.TopicParticipantEvents)
	cfg.TopicNotificationLifecycle = envOrDefault("TOPIC_NOTIFICATION_LIFECYCLE", cfg.TopicNotificationLifecycle)
	cfg.TopicNotificationCommands = envOrDefault("TOPIC_NOTIFICATION_COMMANDS", cfg.TopicNotificationCommands)
	cfg.TopicNotificationState = envOrDefault("TOPIC_NOTIFICATION_STATE", cfg.TopicNotificationState)
	cfg.TopicProviderMessages = envOrDefault("TOPIC_PROVIDER_MESSAGES", cfg.TopicProviderMessages)
	cfg.ArchivalBaseURL = envOrDefault("ARCHIVAL_BASE_URL", cfg.ArchivalBaseURL)
	cfg.PersonRegistryBaseURL = envOrDefault("PERSON_REGISTRY_BASE_URL", cfg.PersonRegistryBaseURL)
	cfg.CaseBaseURL = envOrDefault("CASE_BASE_URL", cfg.CaseBaseURL)
	cfg.TokenURL = envOrDefault("TOKEN_URL", cfg.TokenURL)
	cfg.TokenClientID = envOrDefault("TOKEN_CLIENT_ID", cfg.TokenClientID)
	cfg.TokenClientSecret = envOrDefault("TOKEN_CLIENT_SECRET", cfg.TokenClientSecret)
	cfg.TokenScope = envOrDefault("TOKEN_SCOPE", cfg.TokenScope)
	cfg.InstanceID = envOrDefault("INSTANCE_ID", cfg.InstanceID)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.GraceWindow = time.Duration(envInt("GRACE_WINDOW_MINUTES", int(cfg.GraceWindow.Minutes()))) * time.Minute
	cfg.MessageValidity = time.Duration(envInt("MESSAGE_VALIDITY_DAYS", int(cfg.MessageValidity.Hours()/24))) * 24 * time.Hour
	cfg.RenotifyInterval = time.Duration(envInt("RENOTIFY_INTERVAL_DAYS", int(cfg.RenotifyInterval.Hours()/24))) * 24 * time.Hour
	cfg.SweepBatchSize = envInt("SWEEP_BATCH_SIZE", cfg.SweepBatchSize)
	cfg.ChannelCacheTTL = time.Duration(envInt("CHANNEL_CACHE_SECONDS", int(cfg.ChannelCacheTTL.Seconds()))) * time.Second
	cfg.LeaderElectionEnabled = envBool("LEADER_ELECTION_ENABLED", cfg.LeaderElectionEnabled)
	cfg.LeaderLeaseTTL = time.Duration(envInt("LEADER_LEASE_SECONDS", int(cfg.LeaderLeaseTTL.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = cfg.ServiceID
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
