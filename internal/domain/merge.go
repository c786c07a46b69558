package domain

import (
	"fmt"
	"strings"
)

// MergeStrategy selects how a guest cart is reconciled with the account cart
// at login. Neither side is dropped silently: when both carts are non-empty
// the caller must choose a strategy explicitly.
type MergeStrategy string

const (
	// MergeServerWins keeps the account cart and discards the guest cart.
	MergeServerWins MergeStrategy = "server"
	// MergeLocalWins replaces the account cart with the guest cart.
	MergeLocalWins MergeStrategy = "local"
	// MergeSum combines both carts, summing quantities per product capped at
	// available stock.
	MergeSum MergeStrategy = "sum"
)

// ParseMergeStrategy validates a strategy supplied by a client.
func ParseMergeStrategy(value string) (MergeStrategy, error) {
	switch MergeStrategy(strings.ToLower(strings.TrimSpace(value))) {
	case MergeServerWins:
		return MergeServerWins, nil
	case MergeLocalWins:
		return MergeLocalWins, nil
	case MergeSum:
		return MergeSum, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q", value)
}
