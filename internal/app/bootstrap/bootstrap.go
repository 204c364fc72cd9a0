package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ballotengine "quorum/contexts/governance/ballot-engine"
	"quorum/contexts/governance/ballot-engine/adapters/memory"
	postgresadapter "quorum/contexts/governance/ballot-engine/adapters/postgres"
	workerapp "quorum/contexts/governance/ballot-engine/application/workers"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	database *db.Database
	logger   *slog.Logger
}

type WorkerApp struct {
	database      *db.Database
	outboxRelay   workerapp.OutboxRelay
	auditConsumer workerapp.VoteAuditConsumer
	runRelay      bool
	runAudit      bool
	pollInterval  time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	operators, err := parseOperators(cfg.OperatorAddresses)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(database.DB, logger)
	gate := memory.NewStore(operators)
	module := ballotengine.NewModule(ballotengine.Dependencies{
		Gate:        gate,
		Sessions:    repo,
		Resolutions: repo,
		Voters:      repo,
		Tallies:     repo,
		Outbox:      repo,
		Clock:       postgresadapter.SystemClock{},
		IDGen:       postgresadapter.UUIDGenerator{},
		Logger:      logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		database: database,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	database, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(database.DB, logger)
	return &WorkerApp{
		database: database,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		auditConsumer: workerapp.VoteAuditConsumer{
			Subscriber:    kafka,
			Audits:        repo,
			Dedup:         repo,
			Clock:         postgresadapter.SystemClock{},
			IDGen:         postgresadapter.UUIDGenerator{},
			ConsumerGroup: "ballot-audit-cg",
			DedupTTL:      7 * 24 * time.Hour,
			Logger:        logger,
		},
		runRelay:     cfg.EnableOutboxRelay,
		runAudit:     cfg.EnableAuditConsumer,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.runAudit {
		if err := w.auditConsumer.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"outbox_relay", w.runRelay,
		"audit_consumer", w.runAudit,
	)

	for {
		if w.runRelay {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.database != nil {
		return w.database.Close()
	}
	return nil
}

func parseOperators(raw []string) ([]entities.Address, error) {
	operators := make([]entities.Address, 0, len(raw))
	for _, value := range raw {
		address, err := entities.ParseAddress(value)
		if err != nil {
			return nil, fmt.Errorf("parse operator address %q: %w", value, err)
		}
		operators = append(operators, address)
	}
	if len(operators) == 0 {
		return nil, errors.New("OPERATOR_ADDRESSES must list at least one operator")
	}
	return operators, nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
