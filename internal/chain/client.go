package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/ratelimit"

	"txsemantics/internal/model"
	"txsemantics/internal/payload"
)

// ErrNotFound is returned when the node has no such block, transaction or
// receipt.
var ErrNotFound = errors.New("not found")

// Observer records the outcome of node calls.
type Observer interface {
	Observe(operation string, err error, started time.Time)
}

// Options tunes a Client. RateLimit is requests per second; zero disables it.
type Options struct {
	RateLimit int
	Observer  Observer
}

// Client wraps go-ethereum RPC and returns raw results as payload maps so the
// normalizer sees exactly what the node sent.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	limiter   ratelimit.Limiter
	observer  Observer
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewUnlimited()
	if opts.RateLimit > 0 {
		limiter = ratelimit.New(opts.RateLimit)
	}
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		limiter:   limiter,
		observer:  opts.Observer,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (id *big.Int, err error) {
	defer c.observe("eth_chainId", time.Now(), &err)
	c.limiter.Take()
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (n uint64, err error) {
	defer c.observe("eth_blockNumber", time.Now(), &err)
	c.limiter.Take()
	return c.ethClient.BlockNumber(ctx)
}

// Block returns the raw block. With fullTx the transactions are objects,
// otherwise hashes.
func (c *Client) Block(ctx context.Context, number uint64, fullTx bool) (payload.Map, error) {
	return c.callMap(ctx, "eth_getBlockByNumber", hexutil.EncodeUint64(number), fullTx)
}

// Transaction returns the raw transaction.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (payload.Map, error) {
	return c.callMap(ctx, "eth_getTransactionByHash", hash)
}

// TransactionReceipt returns the raw receipt including its logs.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (payload.Map, error) {
	return c.callMap(ctx, "eth_getTransactionReceipt", hash)
}

// Code returns the runtime bytecode at the latest block.
func (c *Client) Code(ctx context.Context, address common.Address) (code []byte, err error) {
	defer c.observe("eth_getCode", time.Now(), &err)
	c.limiter.Take()
	return c.ethClient.CodeAt(ctx, address, nil)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (out []byte, err error) {
	defer c.observe("eth_call", time.Now(), &err)
	c.limiter.Take()
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// ContractHash returns the chash of the code deployed at address. found is
// false for accounts without code.
func (c *Client) ContractHash(ctx context.Context, address common.Address) (string, bool, error) {
	code, err := c.Code(ctx, address)
	if err != nil {
		return "", false, fmt.Errorf("get code %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return "", false, nil
	}
	return model.CodeHash(code), true, nil
}

func (c *Client) callMap(ctx context.Context, method string, args ...interface{}) (m payload.Map, err error) {
	defer c.observe(method, time.Now(), &err)
	c.limiter.Take()

	var raw json.RawMessage
	if err := c.rpcClient.CallContext(ctx, &raw, method, args...); err != nil {
		return payload.Map{}, fmt.Errorf("%s: %w", method, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return payload.Map{}, fmt.Errorf("%s: %w", method, ErrNotFound)
	}
	m, err = payload.Parse(raw)
	if err != nil {
		return payload.Map{}, fmt.Errorf("%s: %w", method, err)
	}
	return m, nil
}

func (c *Client) observe(operation string, started time.Time, err *error) {
	if c.observer == nil {
		return
	}
	var e error
	if err != nil && !errors.Is(*err, ErrNotFound) {
		e = *err
	}
	c.observer.Observe(operation, e, started)
}
