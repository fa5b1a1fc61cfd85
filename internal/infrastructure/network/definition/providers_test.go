package networkdefinition

import (
	"testing"

	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/infrastructure/configloader"
	"batch_transfer/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNetworkDefinitionProvider(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewNop(), []configloader.NetworkNodeConfig{
		{Identifier: "Solana", RPCURL: "https://solana.example", MaxItemsPerBatch: 10},
		{Identifier: "tron", SpenderAddress: "TSpender"},
		{Identifier: "base", Kind: "EVM", ChainID: "8453", EVMChainID: 8453, DefaultDecimals: 18},
		{Identifier: "mystery"},
		{Identifier: "cosmos", Kind: "tendermint", ChainID: "cosmoshub-4"},
	})

	defs := p.GetAllNetworkDefinitions()
	require.Len(t, defs, 3)

	sol, ok := p.GetNetworkDefinitionByName("SOLANA")
	require.True(t, ok)
	assert.Equal(t, "https://solana.example", sol.PrimaryRPCURL)
	assert.Equal(t, 10, sol.MaxItemsPerBatch)
	assert.Equal(t, entity.SolanaChainID, sol.ChainID)

	tronDef, ok := p.GetNetworkDefinitionByName("tron")
	require.True(t, ok)
	assert.Equal(t, "TSpender", tronDef.SpenderAddress)
	assert.Equal(t, 20, tronDef.MaxItemsPerBatch)

	base, ok := p.GetNetworkDefinitionByChainID("8453")
	require.True(t, ok)
	assert.Equal(t, entity.ChainKindEVM, base.Kind)
	assert.Equal(t, uint64(8453), base.EVMChainID)

	_, ok = p.GetNetworkDefinitionByName("mystery")
	assert.False(t, ok)
	_, ok = p.GetNetworkDefinitionByName("cosmos")
	assert.False(t, ok)
}

func TestGetNetworkDefinitionByChainID_FallsBackToKnown(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewNop(), nil)
	assert.Empty(t, p.GetAllNetworkDefinitions())

	def, ok := p.GetNetworkDefinitionByChainID(entity.EthereumChainID)
	require.True(t, ok)
	assert.Equal(t, "ethereum", def.Identifier)

	_, ok = p.GetNetworkDefinitionByName("ethereum")
	assert.False(t, ok)

	_, ok = p.GetNetworkDefinitionByChainID("0")
	assert.False(t, ok)
}

func TestNilProvider(t *testing.T) {
	var p *NetworkDefinitionProvider
	assert.Empty(t, p.GetAllNetworkDefinitions())
	_, ok := p.GetNetworkDefinitionByName("solana")
	assert.False(t, ok)
}
