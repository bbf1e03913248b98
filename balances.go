package main

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrNegativeAmount error = errors.New("credit amount must not be negative")

// BalanceLedger tracks funds owed to creators from redemptions. Amounts are
// big.Int, so accumulation cannot wrap. A withdrawal path is not exposed yet;
// Drain exists so one can be added without touching the bookkeeping.
type BalanceLedger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

func NewBalanceLedger() *BalanceLedger {
	return &BalanceLedger{balances: make(map[common.Address]*big.Int)}
}

// Credit adds amount to identity's pending balance as one read-modify-write.
func (ledger *BalanceLedger) Credit(identity common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	balance, ok := ledger.balances[identity]
	if !ok {
		balance = new(big.Int)
		ledger.balances[identity] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// BalanceOf returns a copy of identity's pending balance. Unknown identities
// have a zero balance.
func (ledger *BalanceLedger) BalanceOf(identity common.Address) *big.Int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	balance, ok := ledger.balances[identity]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// Drain zeroes identity's balance and returns what was owed.
func (ledger *BalanceLedger) Drain(identity common.Address) *big.Int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	balance, ok := ledger.balances[identity]
	if !ok {
		return new(big.Int)
	}
	owed := new(big.Int).Set(balance)
	balance.SetInt64(0)
	return owed
}
