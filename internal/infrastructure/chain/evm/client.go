// Package evm talks to EVM-compatible chains through go-ethereum's RPC
// client and derives escrow keys from a BIP-39 mnemonic.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/core/ports"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMineTimeout  = 3 * time.Minute
	defaultPollInterval = 2 * time.Second
	transferGas         = 21000

	// txIndexingMessage is what nodes answer receipt lookups with while
	// their transaction index is still being built.
	txIndexingMessage = "transaction indexing is in progress"
)

// Config captures the settings of one chain endpoint.
type Config struct {
	RPCURL string
	// Fee is the fixed network fee, in wei, paid by every escrow transfer.
	Fee *big.Int
	// Timeout bounds each RPC round trip.
	Timeout time.Duration
	// MineTimeout bounds the wait for a transfer receipt.
	MineTimeout time.Duration
	// PollInterval spaces receipt lookups while a transfer is pending.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MineTimeout <= 0 {
		c.MineTimeout = defaultMineTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Fee == nil {
		c.Fee = new(big.Int)
	}
	return c
}

// rpcClient is the part of the node API a Conn uses. *ethclient.Client
// implements it.
type rpcClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client opens connections to the configured endpoint.
type Client struct {
	cfg Config
	log zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{cfg: cfg.withDefaults(), log: log}
}

// Connect dials the endpoint and resolves its chain id.
func (c *Client) Connect(ctx context.Context) (ports.ChainConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	rpc, err := ethclient.DialContext(dialCtx, c.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.RPCURL, err)
	}
	chainID, err := rpc.ChainID(dialCtx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}

	return newConn(rpc, rpc.Close, chainID, c.cfg, c.log), nil
}

// Conn is an open RPC connection.
type Conn struct {
	rpc     rpcClient
	closer  func()
	chainID *big.Int
	cfg     Config
	log     zerolog.Logger
}

func newConn(rpc rpcClient, closer func(), chainID *big.Int, cfg Config, log zerolog.Logger) *Conn {
	return &Conn{rpc: rpc, closer: closer, chainID: chainID, cfg: cfg.withDefaults(), log: log}
}

// Balance returns the latest balance of address in wei. Timeouts are
// retried once since the call has no side effects.
func (c *Conn) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("balance: %q is not an evm address", address)
	}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		readCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		balance, err := c.rpc.BalanceAt(readCtx, common.HexToAddress(address), nil)
		cancel()
		if err == nil {
			return balance, nil
		}
		lastErr = err
		if !errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}
	return nil, lastErr
}

// Transfer sends amount from the signer to to, paying exactly the
// configured fee, and waits until the transaction is mined. It is never
// retried: a timeout after submission leaves the outcome unknown.
func (c *Conn) Transfer(ctx context.Context, signer ports.ChainSigner, to string, amount *big.Int) (*ports.TransferReceipt, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("transfer: recipient %q is not an evm address", to)
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	from := common.HexToAddress(signer.Address())
	nonce, err := c.rpc.PendingNonceAt(sendCtx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	recipient := common.HexToAddress(to)
	gasPrice := new(big.Int).Div(c.cfg.Fee, big.NewInt(transferGas))
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &recipient,
		Value:    amount,
		Gas:      transferGas,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), signer.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("sign transfer: %w", err)
	}
	if err := c.rpc.SendTransaction(sendCtx, signed); err != nil {
		return nil, fmt.Errorf("send transfer: %w", err)
	}

	mineCtx, cancelMine := context.WithTimeout(ctx, c.cfg.MineTimeout)
	defer cancelMine()

	receipt, err := c.waitMined(mineCtx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transfer %s reverted", signed.Hash().Hex())
	}

	return &ports.TransferReceipt{TxHash: signed.Hash().Hex(), Amount: amount}, nil
}

func (c *Conn) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !receiptPending(err) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func receiptPending(err error) bool {
	return errors.Is(err, ethereum.NotFound) || strings.Contains(err.Error(), txIndexingMessage)
}

// Close releases the RPC connection.
func (c *Conn) Close() {
	c.closer()
	c.log.Debug().Str("rpc_url", c.cfg.RPCURL).Msg("chain connection closed")
}
