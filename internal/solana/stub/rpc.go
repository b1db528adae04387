package stub

import (
	"context"
	"sync"

	"solana-mev-decoder/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Unknown signatures return nil, nil like a real node.
type RPCClient struct {
	mu           sync.RWMutex
	Transactions map[string]*solana.ParsedTransaction
	Signatures   map[string][]solana.SignatureInfo
	// Err, when set, is returned from every call.
	Err error
	// Calls counts GetTransaction invocations per signature.
	Calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.ParsedTransaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Calls:        make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.ParsedTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls[signature]++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

// GetSignaturesForAddress returns stored signatures, honoring Until and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}

	sigs := c.Signatures[address]
	if opts != nil && opts.Until != "" {
		for i, s := range sigs {
			if s.Signature == opts.Until {
				sigs = sigs[:i]
				break
			}
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(signature string, tx *solana.ParsedTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[signature] = tx
}

// AddSignatures adds newest-first signatures for an address.
func (c *RPCClient) AddSignatures(address string, sigs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range sigs {
		c.Signatures[address] = append(c.Signatures[address], solana.SignatureInfo{Signature: s})
	}
}

// CallCount returns how often GetTransaction was called for signature.
func (c *RPCClient) CallCount(signature string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Calls[signature]
}

var _ solana.RPCClient = (*RPCClient)(nil)
