package payout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

// ERC20Dispatcher pays winners by transferring a stablecoin from the
// treasury account. One SendPayout call per won claim; the arbiter never
// retries a dispatch.
type ERC20Dispatcher struct {
	cfg    Config
	client EthClient
	signer *LocalECDSASigner
	token  common.Address
	abi    abi.ABI
	log    zerolog.Logger
}

// NewERC20Dispatcher dials the configured RPC endpoint. It fails closed when
// the treasury key, token address or endpoint is missing.
func NewERC20Dispatcher(cfg Config, log zerolog.Logger) (*ERC20Dispatcher, error) {
	if strings.TrimSpace(cfg.RPCEndpoint) == "" {
		return nil, errors.New("payout: rpc_endpoint is required")
	}
	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("payout: dial %s: %w", cfg.RPCEndpoint, err)
	}
	return NewERC20DispatcherWithClient(cfg, client, log)
}

// NewERC20DispatcherWithClient wires an already-constructed client,
// primarily for tests.
func NewERC20DispatcherWithClient(cfg Config, client EthClient, log zerolog.Logger) (*ERC20Dispatcher, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, errors.New("payout: token_address is not a valid address")
	}
	if strings.TrimSpace(cfg.TreasuryPKHex) == "" {
		return nil, errors.New("payout: treasury_pk_hex is required")
	}
	if cfg.ChainID == 0 {
		return nil, errors.New("payout: chain_id is required")
	}
	if cfg.TokenDecimals <= 0 {
		cfg.TokenDecimals = DefaultConfig().TokenDecimals
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfig().ConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.TreasuryPKHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("payout: parse treasury key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("payout: parse transfer abi: %w", err)
	}

	return &ERC20Dispatcher{
		cfg:    cfg,
		client: client,
		signer: NewLocalECDSASigner(new(big.Int).SetUint64(cfg.ChainID), key),
		token:  common.HexToAddress(cfg.TokenAddress),
		abi:    parsed,
		log:    log.With().Str("component", "payout").Logger(),
	}, nil
}

// SendPayout transfers amountUSD worth of the token to address and waits for
// a mined receipt. Any ambiguity, including a confirmation timeout, is
// reported as an error so the caller takes the rollback path.
func (d *ERC20Dispatcher) SendPayout(ctx context.Context, address string, amountUSD float64) (*Receipt, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("payout: invalid recipient address %q", address)
	}
	to := common.HexToAddress(address)

	units, err := d.toBaseUnits(amountUSD)
	if err != nil {
		return nil, err
	}

	calldata, err := d.abi.Pack("transfer", to, units)
	if err != nil {
		return nil, fmt.Errorf("payout: pack transfer: %w", err)
	}

	from := d.signer.Address()
	nonce, err := d.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("payout: fetch nonce: %w", err)
	}

	tipCap, err := d.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("payout: suggest tip cap: %w", err)
	}
	head, err := d.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payout: fetch head: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	// feeCap = 2*baseFee + tip, the usual headroom against base fee drift.
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tipCap)

	gasLimit, err := d.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &d.token,
		Data: calldata,
	})
	if err != nil {
		return nil, fmt.Errorf("payout: estimate gas: %w", err)
	}
	gasLimit += gasLimit * d.cfg.GasLimitBufferPct / 100

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(d.cfg.ChainID),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &d.token,
		Data:      calldata,
	})

	signed, err := d.signer.SignTx(tx)
	if err != nil {
		return nil, fmt.Errorf("payout: sign transfer: %w", err)
	}

	if err := d.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("payout: send transfer: %w", err)
	}

	txHash := signed.Hash()
	d.log.Info().
		Str("tx_hash", txHash.Hex()).
		Str("to", to.Hex()).
		Float64("amount_usd", amountUSD).
		Msg("payout dispatched, awaiting confirmation")

	if err := d.awaitReceipt(ctx, txHash); err != nil {
		return nil, err
	}

	return &Receipt{Signature: txHash.Hex(), AmountUSD: amountUSD}, nil
}

func (d *ERC20Dispatcher) awaitReceipt(ctx context.Context, txHash common.Hash) error {
	deadline := time.Now().Add(d.cfg.ConfirmTimeout)
	for {
		receipt, err := d.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil && receipt.Status == types.ReceiptStatusSuccessful:
			return nil
		case err == nil:
			return fmt.Errorf("payout: transfer %s reverted", txHash.Hex())
		case !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("payout: fetch receipt: %w", err)
		}

		if time.Now().After(deadline) {
			// The transfer may still land later; reported as failure so
			// the claim rolls back. Operators reconcile manually.
			return fmt.Errorf("payout: transfer %s unconfirmed after %s", txHash.Hex(), d.cfg.ConfirmTimeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("payout: await receipt: %w", ctx.Err())
		case <-time.After(d.cfg.PollInterval):
		}
	}
}

func (d *ERC20Dispatcher) toBaseUnits(amountUSD float64) (*big.Int, error) {
	if amountUSD <= 0 || math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) {
		return nil, fmt.Errorf("payout: invalid amount %v", amountUSD)
	}
	scaled := new(big.Float).Mul(big.NewFloat(amountUSD), big.NewFloat(math.Pow10(d.cfg.TokenDecimals)))
	units, _ := scaled.Int(nil)
	if units.Sign() <= 0 {
		return nil, fmt.Errorf("payout: amount %v rounds to zero base units", amountUSD)
	}
	return units, nil
}

var _ Dispatcher = (*ERC20Dispatcher)(nil)
