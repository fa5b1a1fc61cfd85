package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the part of ethclient.Client the adapter talks to.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// BatchCaller sends JSON-RPC batches. *rpc.Client implements it.
type BatchCaller interface {
	BatchCallContext(ctx context.Context, b []rpc.BatchElem) error
}

// TxSigner is the signer capability required on EVM networks.
type TxSigner interface {
	port.Signer
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Options tunes RPC and confirmation timing.
type Options struct {
	RPCCallTimeout time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.RPCCallTimeout <= 0 {
		o.RPCCallTimeout = 10 * time.Second
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 2 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	return o
}

// Adapter moves ERC-20 tokens through Permit2 allowance transfers.
type Adapter struct {
	def     entity.NetworkDefinition
	backend Backend
	batch   BatchCaller
	permit2 common.Address
	chainID *big.Int
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	pending map[common.Address]unconfirmedTx
}

// New creates an adapter on top of an existing backend.
func New(def entity.NetworkDefinition, backend Backend, batch BatchCaller, opts Options) *Adapter {
	initParsedABIs()
	permit2 := def.ContractAddress
	if permit2 == "" {
		permit2 = Permit2Address
	}
	chainID := def.EVMChainID
	if chainID == 0 {
		chainID = 1
	}
	return &Adapter{
		def:     def,
		backend: backend,
		batch:   batch,
		permit2: common.HexToAddress(permit2),
		chainID: new(big.Int).SetUint64(chainID),
		opts:    opts.withDefaults(),
		now:     time.Now,
		pending: make(map[common.Address]unconfirmedTx),
	}
}

// Dial connects to the first reachable RPC of the network.
func Dial(def entity.NetworkDefinition, connectionTimeout time.Duration, opts Options) (*Adapter, error) {
	rpcURLs := append([]string{def.PrimaryRPCURL}, def.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return New(def, client, client.Client(), opts), nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", def.Name, lastErr)
}

// Definition returns the network definition for this adapter.
func (a *Adapter) Definition() entity.NetworkDefinition {
	return a.def
}

// DefaultDelegate is the configured Permit2 spender or the signer.
func (a *Adapter) DefaultDelegate(signerIdentity string) string {
	return a.def.Delegate(signerIdentity)
}

// ValidateAddress accepts 0x-prefixed hex addresses.
func (a *Adapter) ValidateAddress(address string) error {
	if !common.IsHexAddress(strings.TrimSpace(address)) {
		return fmt.Errorf("%w: %q is not an EVM address", entity.ErrInvalidAddress, address)
	}
	return nil
}

// CanDeriveAccount is true for any valid pair: ERC-20 balances live on the owner address.
func (a *Adapter) CanDeriveAccount(owner, token string) bool {
	return common.IsHexAddress(owner) && common.IsHexAddress(token)
}

// DeriveAccount returns the checksummed owner.
func (a *Adapter) DeriveAccount(_ context.Context, owner, token string) (string, error) {
	if !a.CanDeriveAccount(owner, token) {
		return "", fmt.Errorf("%w: %s/%s", entity.ErrAccountDerivation, owner, token)
	}
	return common.HexToAddress(owner).Hex(), nil
}

type transferInstruction struct {
	item    entity.TransferItem
	details AllowanceTransferDetails
}

func (i transferInstruction) Item() entity.TransferItem { return i.item }

// BuildTransferInstruction builds one Permit2 transfer detail. The spender is the transaction sender.
func (a *Adapter) BuildTransferInstruction(item entity.TransferItem, _ string) (port.Instruction, error) {
	if item.AmountBaseUnits == nil || item.AmountBaseUnits.IsZero() {
		return nil, fmt.Errorf("%w: zero amount", entity.ErrInvalidAmount)
	}
	if item.AmountBaseUnits.BitLen() > 160 {
		return nil, fmt.Errorf("%w: amount exceeds uint160", entity.ErrInvalidAmount)
	}
	for _, addr := range []string{item.SourceAccount, item.DestinationAccount, item.TokenIdentifier} {
		if err := a.ValidateAddress(addr); err != nil {
			return nil, err
		}
	}
	return transferInstruction{
		item: item,
		details: AllowanceTransferDetails{
			From:   common.HexToAddress(item.SourceAccount),
			To:     common.HexToAddress(item.DestinationAccount),
			Amount: item.AmountBaseUnits.ToBig(),
			Token:  common.HexToAddress(item.TokenIdentifier),
		},
	}, nil
}
