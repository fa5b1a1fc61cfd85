package bootstrap

import (
	"context"
	"fmt"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/app/service"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/infrastructure/configloader"
	"batch_transfer/internal/infrastructure/journal"
	networkdefinition "batch_transfer/internal/infrastructure/network/definition"
	"batch_transfer/internal/infrastructure/signer"
	"batch_transfer/internal/infrastructure/statusstore"

	"go.uber.org/zap"
)

// OpenStore opens the status store selected by database.driver.
func OpenStore(cfg *configloader.Config, l port.Logger, zl *zap.Logger) (port.StatusStore, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := statusstore.OpenPostgres(cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		l.Info("Status store opened", "driver", "postgres", "host", cfg.Database.Host, "db", cfg.Database.DBName)
		return statusstore.NewGormStore(db, l), nil
	case "http":
		timeout := time.Duration(cfg.StatusAPI.RequestTimeoutMillis) * time.Millisecond
		l.Info("Status store opened", "driver", "http", "baseURL", cfg.StatusAPI.BaseURL)
		return statusstore.NewHTTPStore(cfg.StatusAPI.BaseURL, cfg.StatusAPI.APIKey, timeout, zl), nil
	case "memory":
		l.Warn("Using in-memory status store, state is lost on restart")
		return statusstore.NewMemoryStore(l), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// OpenJournal opens the signature journal. An empty path disables it.
func OpenJournal(cfg *configloader.Config) (port.SignatureJournal, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	j, err := journal.NewFileJournal(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// OrchestratorConfig maps the execution section onto the engine policy.
func OrchestratorConfig(cfg *configloader.Config, nc configloader.NetworkNodeConfig) service.OrchestratorConfig {
	return service.OrchestratorConfig{
		RetryPolicy: service.RetryPolicy{
			MaxRetries:         cfg.Execution.MaxRetries,
			BaseDelay:          time.Duration(cfg.Execution.BaseDelayMillis) * time.Millisecond,
			RetryDeterministic: cfg.Execution.RetryDeterministicErrors,
		},
		DelayBetweenBatches: time.Duration(cfg.Execution.DelayBetweenBatchesMs) * time.Millisecond,
		MaxItemsPerBatch:    nc.MaxItemsPerBatch,
	}
}

// Engine holds everything needed to run batch transfers on the configured networks.
type Engine struct {
	Orchestrators map[string]*service.DelegationBatchTransferOrchestrator
	Reconciler    *service.StatusReconciler
}

// Services returns the orchestrators as port.BatchTransferService keyed by identifier.
func (e *Engine) Services() map[string]port.BatchTransferService {
	out := make(map[string]port.BatchTransferService, len(e.Orchestrators))
	for id, o := range e.Orchestrators {
		out[id] = o
	}
	return out
}

// BuildEngine creates one orchestrator per configured network. Networks that cannot be
// reached are logged and skipped. A network without a usable key still gets an
// orchestrator whose runs fail with entity.ErrSignerUnavailable.
func BuildEngine(
	ctx context.Context,
	cfg *configloader.Config,
	defs *networkdefinition.NetworkDefinitionProvider,
	backends port.ChainBackendProvider,
	writer port.StatusWriter,
	sigJournal port.SignatureJournal,
	m port.TransferMetrics,
	l port.Logger,
	passphrase signer.PassphraseFunc,
) *Engine {
	reconciler := service.NewStatusReconciler(writer, sigJournal, l, m)
	engine := &Engine{
		Orchestrators: make(map[string]*service.DelegationBatchTransferOrchestrator),
		Reconciler:    reconciler,
	}

	for _, nc := range cfg.Networks {
		def, ok := defs.GetNetworkDefinitionByName(nc.Identifier)
		if !ok {
			l.Warn("Skipping network without definition", "identifier", nc.Identifier)
			continue
		}
		backend, err := backends.GetBackend(ctx, def.Identifier)
		if err != nil {
			l.Error("Failed to connect to network, skipping", "identifier", def.Identifier, "error", err)
			continue
		}

		var s port.Signer
		if loaded, err := signer.LoadFromFile(def.Kind, nc.KeyFile, passphrase); err != nil {
			l.Warn("Signer not loaded, runs on this network will fail", "identifier", def.Identifier, "error", err)
		} else {
			s = loaded
			l.Info("Signer loaded", "identifier", def.Identifier, "identity", loaded.PublicIdentity())
		}

		limiter := service.NewRateLimitedExecutor(
			cfg.Performance.RequestsPerSecond,
			cfg.Performance.Burst,
			cfg.Performance.MaxConcurrentRoutines,
		)
		engine.Orchestrators[def.Identifier] = service.NewDelegationBatchTransferOrchestrator(
			backend,
			signer.NewStaticProvider(s),
			reconciler,
			limiter,
			l,
			m,
			OrchestratorConfig(cfg, nc),
		)
		l.Info("Orchestrator ready", "identifier", def.Identifier, "chainId", def.ChainID, "kind", string(def.Kind))
	}
	return engine
}

// ResolveChainID accepts a network identifier or a chain id.
func ResolveChainID(defs *networkdefinition.NetworkDefinitionProvider, chain string) (entity.NetworkDefinition, error) {
	if def, ok := defs.GetNetworkDefinitionByName(chain); ok {
		return def, nil
	}
	if def, ok := defs.GetNetworkDefinitionByChainID(chain); ok {
		return def, nil
	}
	return entity.NetworkDefinition{}, fmt.Errorf("unknown network %q", chain)
}
