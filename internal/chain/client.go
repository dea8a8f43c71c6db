package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC and provides the calls the metadata resolver
// needs.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// Registry hands out one client per chain, dialing lazily on first use.
// Initialization is guarded per chain so concurrent lookups never dial the
// same endpoint twice. Clients live for the life of the process.
type Registry struct {
	mu      sync.Mutex
	urls    map[uint64]string
	clients map[uint64]*clientEntry
}

type clientEntry struct {
	once   sync.Once
	client *Client
	err    error
}

// NewRegistry builds a registry from a chain id to RPC URL mapping.
func NewRegistry(urls map[uint64]string) *Registry {
	copied := make(map[uint64]string, len(urls))
	for chainID, url := range urls {
		copied[chainID] = url
	}
	return &Registry{
		urls:    copied,
		clients: make(map[uint64]*clientEntry),
	}
}

// Client returns the client for a chain, dialing it on first use.
func (r *Registry) Client(ctx context.Context, chainID uint64) (*Client, error) {
	r.mu.Lock()
	entry, ok := r.clients[chainID]
	if !ok {
		entry = &clientEntry{}
		r.clients[chainID] = entry
	}
	url := r.urls[chainID]
	r.mu.Unlock()

	entry.once.Do(func() {
		if url == "" {
			entry.err = fmt.Errorf("no rpc endpoint configured for chain %d", chainID)
			return
		}
		entry.client, entry.err = NewClient(ctx, url)
	})
	return entry.client, entry.err
}

// Close closes every dialed client.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.clients {
		if entry.client != nil {
			entry.client.Close()
		}
	}
}
