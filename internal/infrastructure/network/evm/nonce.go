package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// replacementBumpPercent clears the node's minimum fee bump for replacing a pending transaction.
const replacementBumpPercent = 12

type sentTx struct {
	hash common.Hash
	data []byte
}

// unconfirmedTx is the last nonce of a sender that timed out before any of its attempts was mined.
type unconfirmedTx struct {
	nonce    uint64
	tip      *big.Int
	feeCap   *big.Int
	attempts []sentTx
}

func (a *Adapter) unconfirmed(from common.Address) *unconfirmedTx {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.pending[from]
	if !ok {
		return nil
	}
	return &u
}

func (a *Adapter) remember(from common.Address, u unconfirmedTx) {
	a.mu.Lock()
	a.pending[from] = u
	a.mu.Unlock()
}

func (a *Adapter) forget(from common.Address) {
	a.mu.Lock()
	delete(a.pending, from)
	a.mu.Unlock()
}

func bumpFee(prev *big.Int) *big.Int {
	if prev == nil {
		return new(big.Int)
	}
	bumped := new(big.Int).Mul(prev, big.NewInt(100+replacementBumpPercent))
	bumped.Div(bumped, big.NewInt(100))
	if bumped.Cmp(prev) <= 0 {
		bumped.Add(prev, big.NewInt(1))
	}
	return bumped
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
