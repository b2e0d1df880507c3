// Package payout abstracts the on-chain stablecoin transfer behind a
// capability interface so the claim arbiter can be tested without a node.
package payout

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Receipt is the proof of a confirmed payout.
type Receipt struct {
	// Signature is the hex transaction hash recorded on the bounty.
	Signature string
	// AmountUSD is the dollar amount that was dispatched.
	AmountUSD float64
}

// Dispatcher sends the prize to a winner. Implementations must report
// failure whenever confirmation is ambiguous: the arbiter rolls the claim
// back on failure, so an unconfirmed transfer that actually landed means
// stuck funds requiring manual reconciliation, never a silent double state.
type Dispatcher interface {
	SendPayout(ctx context.Context, address string, amountUSD float64) (*Receipt, error)
}

// EthClient is the subset of ethclient.Client the dispatcher needs.
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}
