package spl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// MaxItemsPerBatch keeps a batch of SPL transfers under the transaction size limit.
const MaxItemsPerBatch = 25

// Client is the part of the solana-go RPC client the adapter talks to.
type Client interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

// TxSigner is the signer capability required on Solana.
type TxSigner interface {
	port.Signer
	PublicKey() solana.PublicKey
	SignSolanaTx(ctx context.Context, tx *solana.Transaction) error
}

// Options tunes confirmation polling.
type Options struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 60 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	return o
}

// Adapter moves SPL tokens with delegated Transfer instructions.
type Adapter struct {
	def    entity.NetworkDefinition
	client Client
	opts   Options
}

// New creates an adapter on top of an existing client.
func New(def entity.NetworkDefinition, c Client, opts Options) *Adapter {
	if def.MaxItemsPerBatch <= 0 {
		def.MaxItemsPerBatch = MaxItemsPerBatch
	}
	return &Adapter{def: def, client: c, opts: opts.withDefaults()}
}

// Dial creates an adapter for the network's primary RPC endpoint.
func Dial(def entity.NetworkDefinition, opts Options) *Adapter {
	return New(def, rpc.New(def.PrimaryRPCURL), opts)
}

// Definition returns the network definition for this adapter.
func (a *Adapter) Definition() entity.NetworkDefinition {
	return a.def
}

// DefaultDelegate is the configured SPL delegate or the signer.
func (a *Adapter) DefaultDelegate(signerIdentity string) string {
	return a.def.Delegate(signerIdentity)
}

// ValidateAddress accepts base58 public keys.
func (a *Adapter) ValidateAddress(address string) error {
	_, err := parseKey(address)
	return err
}

// CanDeriveAccount reports whether an associated token account exists for owner.
// Off-curve owners (program derived addresses) have none.
func (a *Adapter) CanDeriveAccount(owner, token string) bool {
	ownerKey, err := parseKey(owner)
	if err != nil {
		return false
	}
	if _, err := parseKey(token); err != nil {
		return false
	}
	return ownerKey.IsOnCurve()
}

// DeriveAccount returns the associated token account of owner for the mint.
func (a *Adapter) DeriveAccount(_ context.Context, owner, token string) (string, error) {
	ata, err := a.associatedAccount(owner, token)
	if err != nil {
		return "", err
	}
	return ata.String(), nil
}

func (a *Adapter) associatedAccount(owner, mint string) (solana.PublicKey, error) {
	if !a.CanDeriveAccount(owner, mint) {
		return solana.PublicKey{}, fmt.Errorf("%w: %s is not on curve for %s", entity.ErrAccountDerivation, owner, mint)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(solana.MustPublicKeyFromBase58(strings.TrimSpace(owner)), solana.MustPublicKeyFromBase58(strings.TrimSpace(mint)))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", entity.ErrAccountDerivation, err)
	}
	return ata, nil
}

type transferInstruction struct {
	item entity.TransferItem
	ix   solana.Instruction
}

func (i transferInstruction) Item() entity.TransferItem { return i.item }

// BuildTransferInstruction builds an SPL Transfer signed by the delegate authority.
func (a *Adapter) BuildTransferInstruction(item entity.TransferItem, authority string) (port.Instruction, error) {
	if item.AmountBaseUnits == nil || item.AmountBaseUnits.IsZero() {
		return nil, fmt.Errorf("%w: zero amount", entity.ErrInvalidAmount)
	}
	if !item.AmountBaseUnits.IsUint64() {
		return nil, fmt.Errorf("%w: amount exceeds u64", entity.ErrInvalidAmount)
	}
	source, err := parseKey(item.SourceAccount)
	if err != nil {
		return nil, err
	}
	destination, err := parseKey(item.DestinationAccount)
	if err != nil {
		return nil, err
	}
	delegate, err := parseKey(authority)
	if err != nil {
		return nil, err
	}

	ix, err := token.NewTransferInstruction(item.AmountBaseUnits.Uint64(), source, destination, delegate, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build SPL transfer: %w", err)
	}
	return transferInstruction{item: item, ix: ix}, nil
}

func parseKey(address string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q: %v", entity.ErrInvalidAddress, address, err)
	}
	return key, nil
}
