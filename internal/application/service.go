package application

import (
	"log/slog"
	"time"

	"github.com/caseflow/followup-service/internal/ports"
)

type Service struct {
	cfg            Config
	logger         *slog.Logger
	events         ports.EventRepository
	notifications  ports.NotificationRepository
	outbox         ports.OutboxRepository
	archival       ports.ArchivalClient
	personRegistry ports.PersonRegistryClient
	cases          ports.CaseClient
	cache          ports.Cache
	nowFn          func() time.Time
}

type Dependencies struct {
	Config         Config
	Logger         *slog.Logger
	Events         ports.EventRepository
	Notifications  ports.NotificationRepository
	Outbox         ports.OutboxRepository
	Archival       ports.ArchivalClient
	PersonRegistry ports.PersonRegistryClient
	Cases          ports.CaseClient
	Cache          ports.Cache
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "followup-service"
	}
	if cfg.MessageValidity <= 0 {
		cfg.MessageValidity = 14 * 24 * time.Hour
	}
	if cfg.RenotifyInterval <= 0 {
		cfg.RenotifyInterval = 7 * 24 * time.Hour
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 30 * time.Minute
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 200
	}
	if cfg.ChannelCacheTTL <= 0 {
		cfg.ChannelCacheTTL = time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:            cfg,
		logger:         logger,
		events:         deps.Events,
		notifications:  deps.Notifications,
		outbox:         deps.Outbox,
		archival:       deps.Archival,
		personRegistry: deps.PersonRegistry,
		cases:          deps.Cases,
		cache:          deps.Cache,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}
