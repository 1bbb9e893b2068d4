package airdrop

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
)

// Ledger is an in-memory balance book per token.
type Ledger struct {
	balances map[string]map[library.Account]*big.Int
	mutex    *deadlock.Mutex
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]map[library.Account]*big.Int),
		mutex:    &deadlock.Mutex{},
	}
}

func (l *Ledger) Transfer(_ context.Context, campaign Campaign, to library.Account, amount *big.Int) (string, error) {
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("cannot transfer %s", amount)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	book, ok := l.balances[campaign.TokenAddress]
	if !ok {
		book = make(map[library.Account]*big.Int)
		l.balances[campaign.TokenAddress] = book
	}
	if _, ok := book[to]; !ok {
		book[to] = new(big.Int)
	}
	book[to].Add(book[to], amount)
	return "ledger:" + uuid.NewString(), nil
}

func (l *Ledger) Balance(token string, account library.Account) *big.Int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if b, ok := l.balances[token][account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}
