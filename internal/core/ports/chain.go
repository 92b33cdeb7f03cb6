package ports

import (
	"context"
	"crypto/ecdsa"
	"math/big"
)

// ChainSigner is a key able to authorise transfers from Address.
type ChainSigner interface {
	Address() string
	PrivateKey() *ecdsa.PrivateKey
}

// KeyDeriver derives deterministic signers from a seed string.
type KeyDeriver interface {
	DeriveKey(seed string) (ChainSigner, error)
}

// TransferReceipt describes a mined transfer.
type TransferReceipt struct {
	TxHash string
	Amount *big.Int
}

// ChainConn is an open connection to a chain RPC endpoint. Close must be
// called exactly once by whoever acquired it.
type ChainConn interface {
	Balance(ctx context.Context, address string) (*big.Int, error)
	// Transfer submits a signed transfer and waits for it to be mined.
	Transfer(ctx context.Context, signer ChainSigner, to string, amount *big.Int) (*TransferReceipt, error)
	Close()
}

// ChainClient opens chain connections.
type ChainClient interface {
	Connect(ctx context.Context) (ChainConn, error)
}
