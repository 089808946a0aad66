package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrInsufficientFunds = errors.New("core: insufficient funds")

// MemorySettlement is an in-process settlement rail keeping plain account
// balances in the smallest currency unit. A transfer either moves the
// full amount or fails with no effect. Zero-amount and self transfers
// succeed without touching any balance.
type MemorySettlement struct {
	mu       sync.Mutex
	balances map[string]uint64
}

func NewMemorySettlement() *MemorySettlement {
	return &MemorySettlement{balances: map[string]uint64{}}
}

// Deposit credits an account, creating it when absent.
func (s *MemorySettlement) Deposit(account string, amount uint64) error {
	if s == nil {
		return fmt.Errorf("core: settlement engine is not configured")
	}
	account = normalizePrincipal(account)
	if account == "" {
		return fmt.Errorf("core: settlement account is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances == nil {
		s.balances = map[string]uint64{}
	}
	if s.balances[account] > math.MaxUint64-amount {
		return fmt.Errorf("core: deposit overflows balance for %q", account)
	}
	s.balances[account] += amount
	return nil
}

func (s *MemorySettlement) BalanceOf(account string) uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[normalizePrincipal(account)]
}

func (s *MemorySettlement) Transfer(ctx context.Context, amount uint64, from, to string) error {
	if s == nil {
		return fmt.Errorf("core: settlement engine is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from = normalizePrincipal(from)
	to = normalizePrincipal(to)
	if from == "" || to == "" {
		return fmt.Errorf("core: transfer accounts are required")
	}
	if amount == 0 || from == to {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances == nil {
		s.balances = map[string]uint64{}
	}
	if s.balances[from] < amount {
		return fmt.Errorf("core: transfer %d from %q: %w", amount, from, ErrInsufficientFunds)
	}
	if s.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("core: transfer overflows balance for %q", to)
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

var _ SettlementEngine = (*MemorySettlement)(nil)
