package entity

// ChainKind identifies the transaction model used by a network.
type ChainKind string

const (
	ChainKindEVM    ChainKind = "evm"
	ChainKindTron   ChainKind = "tron"
	ChainKindSolana ChainKind = "solana"
)

// Chain identifiers as they are stored alongside wallet rows.
const (
	EthereumChainID = "1"
	TronChainID     = "728126428"
	SolanaChainID   = "507454"
)

// DefaultTokenDecimals is used when neither the request nor the network supplies decimals.
const DefaultTokenDecimals = 6

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          string    `json:"chainId" yaml:"chainId"`
	Kind             ChainKind `json:"kind" yaml:"kind"`
	Name             string    `json:"name" yaml:"name"`
	Identifier       string    `json:"identifier" yaml:"identifier"` // e.g. "solana", "tron", "ethereum"
	NativeSymbol     string    `json:"nativeSymbol" yaml:"nativeSymbol"`
	DefaultDecimals  int32     `json:"defaultDecimals" yaml:"defaultDecimals"`
	MaxItemsPerBatch int       `json:"maxItemsPerBatch" yaml:"maxItemsPerBatch"`
	PrimaryRPCURL    string    `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string  `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string    `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`

	// SpenderAddress is the account holding the delegation (Permit2 spender, TRC-20 spender or SPL delegate).
	// Empty means the network default, see Delegate.
	SpenderAddress string `json:"spenderAddress,omitempty" yaml:"spenderAddress,omitempty"`
	// ContractAddress is the Permit2 contract on EVM networks and the batch transfer contract on Tron.
	ContractAddress string `json:"contractAddress,omitempty" yaml:"contractAddress,omitempty"`
	// EVMChainID is the numeric chain id used for EIP-155 signing.
	EVMChainID uint64 `json:"evmChainId,omitempty" yaml:"evmChainId,omitempty"`
}

// Decimals returns the network fallback decimals, or DefaultTokenDecimals when unset.
func (d NetworkDefinition) Decimals() int {
	if d.DefaultDecimals > 0 {
		return int(d.DefaultDecimals)
	}
	return DefaultTokenDecimals
}

// Delegate returns the account whose delegation is checked for this network.
// On Tron the batch contract calls transferFrom, so it is the default spender there.
// Elsewhere the signer itself pulls the tokens.
func (d NetworkDefinition) Delegate(signerIdentity string) string {
	if d.SpenderAddress != "" {
		return d.SpenderAddress
	}
	if d.Kind == ChainKindTron {
		return d.ContractAddress
	}
	return signerIdentity
}
