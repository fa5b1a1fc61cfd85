package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/infrastructure/configloader"
	"batch_transfer/internal/infrastructure/network/evm"
	"batch_transfer/internal/infrastructure/network/spl"
	"batch_transfer/internal/infrastructure/network/tron"
)

const (
	defaultProviderConnectionTimeout = 10 * time.Second
)

// DefinitionSource resolves network definitions by identifier.
type DefinitionSource interface {
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}

// Dialer creates a chain backend for one network definition.
type Dialer func(ctx context.Context, def entity.NetworkDefinition) (port.ChainBackend, error)

// backendProvider implements port.ChainBackendProvider and caches one backend per network.
type backendProvider struct {
	defs     DefinitionSource
	dial     Dialer
	backends map[string]port.ChainBackend
	mu       sync.Mutex
	logger   port.Logger
}

// NewBackendProvider creates a provider dialing real chain clients from cfg.
func NewBackendProvider(cfg *configloader.Config, defs DefinitionSource, l port.Logger) port.ChainBackendProvider {
	return NewBackendProviderWithDialer(defs, NewDialer(cfg), l)
}

// NewBackendProviderWithDialer creates a provider using a custom dialer.
func NewBackendProviderWithDialer(defs DefinitionSource, dial Dialer, l port.Logger) port.ChainBackendProvider {
	return &backendProvider{
		defs:     defs,
		dial:     dial,
		backends: make(map[string]port.ChainBackend),
		logger:   l,
	}
}

// GetBackend retrieves the backend of the identified network.
// It caches backends to avoid reconnecting repeatedly.
func (p *backendProvider) GetBackend(ctx context.Context, identifier string) (port.ChainBackend, error) {
	def, ok := p.defs.GetNetworkDefinitionByName(identifier)
	if !ok {
		return nil, fmt.Errorf("network %q is not configured", identifier)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if backend, exists := p.backends[def.Identifier]; exists {
		p.logger.Debug("Returning cached chain backend", "network", def.Identifier)
		return backend, nil
	}

	p.logger.Info("Creating new chain backend", "network", def.Identifier, "kind", def.Kind, "rpc_primary", def.PrimaryRPCURL)
	backend, err := p.dial(ctx, def)
	if err != nil {
		p.logger.Error("Failed to create chain backend", "network", def.Identifier, "error", err)
		return nil, fmt.Errorf("failed to create chain backend for %s: %w", def.Identifier, err)
	}

	p.backends[def.Identifier] = backend
	p.logger.Info("Successfully created and cached new chain backend", "network", def.Identifier)
	return backend, nil
}

// NewDialer builds the production dialer for every supported chain kind.
func NewDialer(cfg *configloader.Config) Dialer {
	rpcTimeout := time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second
	confirmTimeout := time.Duration(cfg.Execution.ConfirmTimeoutSeconds) * time.Second

	return func(_ context.Context, def entity.NetworkDefinition) (port.ChainBackend, error) {
		nc, _ := cfg.Network(def.Identifier)
		switch def.Kind {
		case entity.ChainKindEVM:
			adapter, err := evm.Dial(def, defaultProviderConnectionTimeout, evm.Options{
				RPCCallTimeout: rpcTimeout,
				ConfirmTimeout: confirmTimeout,
			})
			if err != nil {
				return nil, err
			}
			return adapter, nil
		case entity.ChainKindTron:
			adapter, _, err := tron.Dial(def, nc.APIKey, rpcTimeout, tron.Options{FeeLimit: nc.FeeLimitSun})
			if err != nil {
				return nil, err
			}
			return adapter, nil
		case entity.ChainKindSolana:
			return spl.Dial(def, spl.Options{ConfirmTimeout: confirmTimeout}), nil
		}
		return nil, fmt.Errorf("unsupported chain kind %q", def.Kind)
	}
}
