package networkdefinition

import (
	"fmt"
	"strings"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/infrastructure/configloader"
)

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	allNetworkDefs    map[string]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Solana = entity.NetworkDefinition{
		ChainID:          entity.SolanaChainID,
		Kind:             entity.ChainKindSolana,
		Name:             "Solana Mainnet",
		Identifier:       "solana",
		NativeSymbol:     "SOL",
		DefaultDecimals:  6,
		MaxItemsPerBatch: 25,
		PrimaryRPCURL:    "https://api.mainnet-beta.solana.com",
		BlockExplorerURL: "https://solscan.io",
	}
	Tron = entity.NetworkDefinition{
		ChainID:          entity.TronChainID,
		Kind:             entity.ChainKindTron,
		Name:             "Tron Mainnet",
		Identifier:       "tron",
		NativeSymbol:     "TRX",
		DefaultDecimals:  6,
		MaxItemsPerBatch: 20,
		PrimaryRPCURL:    "grpc.trongrid.io:50051",
		BlockExplorerURL: "https://tronscan.org",
	}
	Ethereum = entity.NetworkDefinition{
		ChainID:          entity.EthereumChainID,
		Kind:             entity.ChainKindEVM,
		Name:             "Ethereum Mainnet",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		DefaultDecimals:  18,
		MaxItemsPerBatch: 50,
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL: "https://etherscan.io",
		ContractAddress:  "0x000000000022D473030F116dDEE9F6B43aC78BA3", // Permit2
		EVMChainID:       1,
	}
)

// allKnownDefinitions is a helper to quickly access all hardcoded definitions.
var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Solana.Identifier:   Solana,
	Tron.Identifier:     Tron,
	Ethereum.Identifier: Ethereum,
}

// NewNetworkDefinitionProvider activates the networks listed in the config.
// A configured network overrides the hardcoded fields it sets. Unknown identifiers
// need an explicit kind and chainId.
func NewNetworkDefinitionProvider(log port.Logger, networks []configloader.NetworkNodeConfig) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:            log,
		allNetworkDefs:    allKnownDefinitions,
		activeNetworkDefs: make([]entity.NetworkDefinition, 0, len(networks)),
	}

	for _, nc := range networks {
		identifier := strings.ToLower(strings.TrimSpace(nc.Identifier))
		def, known := p.allNetworkDefs[identifier]
		if !known {
			if nc.Kind == "" || nc.ChainID == "" {
				p.logger.Warn(fmt.Sprintf("Network '%s' has no hardcoded definition and no kind/chainId in config. Skipping.", identifier))
				continue
			}
			def = entity.NetworkDefinition{Identifier: identifier, Name: identifier}
		}
		def = mergeNetworkConfig(def, nc)
		if !validKind(def.Kind) {
			p.logger.Warn(fmt.Sprintf("Network '%s' has unsupported kind '%s'. Skipping.", identifier, def.Kind))
			continue
		}

		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		p.logger.Debug(fmt.Sprintf("  - Active network: %s (ID: %s, ChainID: %s, kind: %s)", def.Name, def.Identifier, def.ChainID, def.Kind))
	}

	if len(p.activeNetworkDefs) == 0 {
		p.logger.Warn("No networks configured. No networks will be active.")
	} else {
		p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Active networks: %d", len(p.activeNetworkDefs)))
	}
	return p
}

func mergeNetworkConfig(def entity.NetworkDefinition, nc configloader.NetworkNodeConfig) entity.NetworkDefinition {
	if nc.Kind != "" {
		def.Kind = entity.ChainKind(strings.ToLower(nc.Kind))
	}
	if nc.ChainID != "" {
		def.ChainID = nc.ChainID
	}
	if nc.EVMChainID != 0 {
		def.EVMChainID = nc.EVMChainID
	}
	if nc.RPCURL != "" {
		def.PrimaryRPCURL = nc.RPCURL
	}
	if len(nc.FallbackRPCURLs) > 0 {
		def.FallbackRPCURLs = nc.FallbackRPCURLs
	}
	if nc.SpenderAddress != "" {
		def.SpenderAddress = nc.SpenderAddress
	}
	if nc.ContractAddress != "" {
		def.ContractAddress = nc.ContractAddress
	}
	if nc.MaxItemsPerBatch > 0 {
		def.MaxItemsPerBatch = nc.MaxItemsPerBatch
	}
	if nc.DefaultDecimals > 0 {
		def.DefaultDecimals = nc.DefaultDecimals
	}
	return def
}

func validKind(k entity.ChainKind) bool {
	switch k {
	case entity.ChainKindEVM, entity.ChainKindTron, entity.ChainKindSolana:
		return true
	}
	return false
}

// GetAllNetworkDefinitions returns the list of active network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if strings.EqualFold(def.Identifier, identifier) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}

	for _, knownDef := range p.allNetworkDefs {
		if knownDef.ChainID == chainID {
			p.logger.Warn(fmt.Sprintf("Network with ChainID %s found in all definitions but not in active list.", chainID))
			return knownDef, true
		}
	}

	return entity.NetworkDefinition{}, false
}
