package solana

import "context"

// RPCClient defines the Solana JSON-RPC calls the decoder pipeline depends on.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction in jsonParsed encoding.
	// Returns nil, nil when the node does not know the signature.
	GetTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)

	// GetSignaturesForAddress retrieves recent signatures that reference an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}
