package tron

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/fbsobreira/gotron-sdk/pkg/client"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/api"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/core"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultFeeLimit is the energy fee limit of one batch call, in sun.
const DefaultFeeLimit int64 = 150_000_000

const batchContractABI = `[{"inputs":[
 {"name":"wallets","type":"address[]"},
 {"name":"tokens","type":"address[][]"},
 {"name":"receiver","type":"address"}],
 "name":"batchTransferTokens","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

const trc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

var (
	parsedBatchABI abi.ABI
	parsedTRC20ABI abi.ABI
	parseABIOnce   sync.Once
)

func initParsedABIs() {
	parseABIOnce.Do(func() {
		var err error
		if parsedBatchABI, err = abi.JSON(strings.NewReader(batchContractABI)); err != nil {
			panic(fmt.Sprintf("failed to parse batch contract ABI: %v", err))
		}
		if parsedTRC20ABI, err = abi.JSON(strings.NewReader(trc20ABI)); err != nil {
			panic(fmt.Sprintf("failed to parse TRC20 ABI: %v", err))
		}
	})
}

// Client is the part of the gotron gRPC client the adapter talks to.
type Client interface {
	TRC20Call(from, contractAddress, data string, constant bool, feeLimit int64) (*api.TransactionExtention, error)
	TRC20ContractBalance(addr, contractAddress string) (*big.Int, error)
	TRC20GetDecimals(contractAddress string) (*big.Int, error)
	ParseTRC20NumericProperty(data string) (*big.Int, error)
	Broadcast(tx *core.Transaction) (*api.Return, error)
	GetTransactionInfoByID(id string) (*core.TransactionInfo, error)
}

// TxSigner is the signer capability required on Tron.
type TxSigner interface {
	port.Signer
	SignTronTx(ctx context.Context, tx *core.Transaction) (*core.Transaction, error)
}

// Options tunes fee limit and confirmation polling.
type Options struct {
	FeeLimit        int64
	ConfirmAttempts int
	PollInterval    time.Duration
}

func (o Options) withDefaults() Options {
	if o.FeeLimit <= 0 {
		o.FeeLimit = DefaultFeeLimit
	}
	if o.ConfirmAttempts <= 0 {
		o.ConfirmAttempts = 20
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	return o
}

// Adapter moves TRC-20 tokens through the batch transfer contract.
// The contract pulls the full approved amount, so item amounts are not encoded.
type Adapter struct {
	def      entity.NetworkDefinition
	client   Client
	contract string
	opts     Options
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates an adapter on top of an existing client.
func New(def entity.NetworkDefinition, c Client, opts Options) *Adapter {
	initParsedABIs()
	return &Adapter{
		def:      def,
		client:   c,
		contract: def.ContractAddress,
		opts:     opts.withDefaults(),
		sleep:    sleepContext,
	}
}

// Dial starts a gRPC client against the network's full node.
func Dial(def entity.NetworkDefinition, apiKey string, timeout time.Duration, opts Options) (*Adapter, *client.GrpcClient, error) {
	if def.ContractAddress == "" {
		return nil, nil, fmt.Errorf("network %s: batch contract address is required", def.Identifier)
	}
	c := client.NewGrpcClientWithTimeout(def.PrimaryRPCURL, timeout)
	if apiKey != "" {
		if err := c.SetAPIKey(apiKey); err != nil {
			return nil, nil, fmt.Errorf("set tron api key: %w", err)
		}
	}
	if err := c.Start(grpc.WithTransportCredentials(insecure.NewCredentials())); err != nil {
		return nil, nil, fmt.Errorf("start tron grpc client %s: %w", def.PrimaryRPCURL, err)
	}
	return New(def, c, opts), c, nil
}

// Definition returns the network definition for this adapter.
func (a *Adapter) Definition() entity.NetworkDefinition {
	return a.def
}

// DefaultDelegate is the configured spender or the batch contract, which calls transferFrom.
func (a *Adapter) DefaultDelegate(signerIdentity string) string {
	return a.def.Delegate(signerIdentity)
}

// ValidateAddress accepts base58check T-addresses.
func (a *Adapter) ValidateAddress(addr string) error {
	if _, err := decodeAddress(addr); err != nil {
		return err
	}
	return nil
}

// CanDeriveAccount is true for any valid pair: TRC-20 balances live on the owner address.
func (a *Adapter) CanDeriveAccount(owner, token string) bool {
	return a.ValidateAddress(owner) == nil && a.ValidateAddress(token) == nil
}

// DeriveAccount returns the owner address unchanged.
func (a *Adapter) DeriveAccount(_ context.Context, owner, token string) (string, error) {
	if !a.CanDeriveAccount(owner, token) {
		return "", fmt.Errorf("%w: %s/%s", entity.ErrAccountDerivation, owner, token)
	}
	return strings.TrimSpace(owner), nil
}

type transferInstruction struct {
	item     entity.TransferItem
	wallet   ethcommon.Address
	token    ethcommon.Address
	receiver ethcommon.Address
}

func (i transferInstruction) Item() entity.TransferItem { return i.item }

// BuildTransferInstruction resolves the item addresses to their 20-byte ABI form.
func (a *Adapter) BuildTransferInstruction(item entity.TransferItem, _ string) (port.Instruction, error) {
	wallet, err := decodeAddress(item.SourceAccount)
	if err != nil {
		return nil, err
	}
	token, err := decodeAddress(item.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	receiver, err := decodeAddress(item.DestinationAccount)
	if err != nil {
		return nil, err
	}
	return transferInstruction{
		item:     item,
		wallet:   toABIAddress(wallet),
		token:    toABIAddress(token),
		receiver: toABIAddress(receiver),
	}, nil
}

// PackBatchTransfer groups instructions by wallet, keeping first-seen order, and
// encodes batchTransferTokens(wallets, tokens, receiver).
func PackBatchTransfer(instructions []port.Instruction) ([]byte, error) {
	initParsedABIs()
	if len(instructions) == 0 {
		return nil, fmt.Errorf("%w: empty batch", entity.ErrInvalidAmount)
	}

	var (
		wallets  []ethcommon.Address
		tokens   [][]ethcommon.Address
		receiver ethcommon.Address
		index    = make(map[ethcommon.Address]int)
	)
	for n, ix := range instructions {
		ti, ok := ix.(transferInstruction)
		if !ok {
			return nil, fmt.Errorf("foreign instruction %T", ix)
		}
		if n == 0 {
			receiver = ti.receiver
		} else if ti.receiver != receiver {
			return nil, fmt.Errorf("%w: batch mixes receivers", entity.ErrInvalidAddress)
		}
		i, seen := index[ti.wallet]
		if !seen {
			i = len(wallets)
			index[ti.wallet] = i
			wallets = append(wallets, ti.wallet)
			tokens = append(tokens, nil)
		}
		tokens[i] = append(tokens[i], ti.token)
	}
	return parsedBatchABI.Pack("batchTransferTokens", wallets, tokens, receiver)
}

func decodeAddress(addr string) (address.Address, error) {
	addr = strings.TrimSpace(addr)
	a, err := address.Base58ToAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", entity.ErrInvalidAddress, addr, err)
	}
	if len(a) != address.AddressLength || a[0] != address.TronBytePrefix {
		return nil, fmt.Errorf("%w: %q is not a tron address", entity.ErrInvalidAddress, addr)
	}
	return a, nil
}

// toABIAddress drops the 0x41 network prefix.
func toABIAddress(a address.Address) ethcommon.Address {
	return ethcommon.BytesToAddress(a[1:])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
