package evm

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"

	"github.com/chainsocial/social-api/internal/core/ports"
)

// SchemeBIP44 derives m/44'/60'/0'/0/i where i is taken from the seed.
const SchemeBIP44 = "bip44-evm"

const (
	bip44Purpose = 44
	ethCoinType  = 60

	// AddressChecksum renders addresses in EIP-55 mixed case.
	AddressChecksum = "checksum"
	// AddressLower renders addresses in lowercase hex.
	AddressLower = "lower"
)

// Signer is an HD-derived account key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
	path    string
}

func (s *Signer) Address() string               { return s.address }
func (s *Signer) PrivateKey() *ecdsa.PrivateKey { return s.key }

// Path is the derivation path the key was produced from.
func (s *Signer) Path() string { return s.path }

// Deriver derives one deterministic account per seed string (a post id)
// under a single mnemonic.
type Deriver struct {
	master        *hdkeychain.ExtendedKey
	addressFormat string
}

// NewDeriver validates the mnemonic and prepares the master key. scheme
// must be SchemeBIP44; addressFormat is AddressChecksum or AddressLower.
func NewDeriver(mnemonic, scheme, addressFormat string) (*Deriver, error) {
	if scheme != SchemeBIP44 {
		return nil, fmt.Errorf("unsupported derivation scheme %q", scheme)
	}
	if addressFormat != AddressChecksum && addressFormat != AddressLower {
		return nil, fmt.Errorf("unsupported address format %q", addressFormat)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &Deriver{master: master, addressFormat: addressFormat}, nil
}

// DeriveKey returns the signer for seed. The same seed always yields the
// same account.
func (d *Deriver) DeriveKey(seed string) (ports.ChainSigner, error) {
	index := seedIndex(seed)
	path := []uint32{
		hdkeychain.HardenedKeyStart + bip44Purpose,
		hdkeychain.HardenedKeyStart + ethCoinType,
		hdkeychain.HardenedKeyStart,
		0,
		index,
	}

	key := d.master
	for _, i := range path {
		child, err := key.Derive(i)
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", seed, err)
		}
		key = child
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("derive %q: %w", seed, err)
	}
	ecdsaKey := priv.ToECDSA()

	address := ethcrypto.PubkeyToAddress(ecdsaKey.PublicKey).Hex()
	if d.addressFormat == AddressLower {
		address = strings.ToLower(address)
	}

	return &Signer{
		key:     ecdsaKey,
		address: address,
		path:    fmt.Sprintf("m/44'/60'/0'/0/%d", index),
	}, nil
}

// seedIndex maps seed onto the non-hardened child index range.
func seedIndex(seed string) uint32 {
	sum := blake2b.Sum256([]byte(seed))
	return binary.BigEndian.Uint32(sum[:4]) &^ hdkeychain.HardenedKeyStart
}
