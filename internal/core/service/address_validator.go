package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const (
	substrateAddressLength = 66
	evmAddressLength       = 42

	nearTestnetSuffix = ".testnet"
	nearMainnetSuffix = ".near"
	// developmentTag is the RPC host label that selects testnet accounts.
	developmentTag = "development"
)

var (
	nearAccountID = regexp.MustCompile(`^[a-z0-9_-]+$`)
	evmAddress    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// isEVMAddress reports whether address is a 0x-prefixed 20-byte hex address.
func isEVMAddress(address string) bool {
	return evmAddress.MatchString(address)
}

// NetworkLookup resolves a registered network by id.
type NetworkLookup interface {
	FindNetwork(ctx context.Context, id string) (*domain.Network, error)
}

// AddressValidator recognises which chain family an address belongs to.
type AddressValidator struct {
	networks NetworkLookup
}

func NewAddressValidator(networks NetworkLookup) *AddressValidator {
	return &AddressValidator{networks: networks}
}

// Validate classifies address by its shape. Fixed-length hex addresses are
// Substrate (66) or EVM (42); anything else is a NEAR account whose suffix
// depends on the environment label embedded in the network's RPC URL.
func (v *AddressValidator) Validate(ctx context.Context, address, networkID string) (domain.ChainKind, error) {
	switch len(address) {
	case substrateAddressLength:
		if !strings.HasPrefix(address, "0x") {
			return "", fmt.Errorf("%w: invalid substrate address", domain.ErrInvalidAddressFormat)
		}
		return domain.ChainSubstrate, nil
	case evmAddressLength:
		if !strings.HasPrefix(address, "0x") {
			return "", fmt.Errorf("%w: invalid evm address", domain.ErrInvalidAddressFormat)
		}
		return domain.ChainEVM, nil
	}

	network, err := v.networks.FindNetwork(ctx, networkID)
	if err != nil {
		return "", err
	}

	suffix := nearMainnetSuffix
	if environmentTag(network.RPCURL) == developmentTag {
		suffix = nearTestnetSuffix
	}
	if !strings.HasSuffix(address, suffix) {
		return "", fmt.Errorf("%w: invalid near address", domain.ErrInvalidAddressFormat)
	}
	if !nearAccountID.MatchString(strings.TrimSuffix(address, suffix)) {
		return "", fmt.Errorf("%w: invalid near address", domain.ErrInvalidAddressFormat)
	}
	return domain.ChainNear, nil
}

// environmentTag returns the second dot-separated segment of rpcURL, so
// "https://rpc.development.example.org" yields "development".
func environmentTag(rpcURL string) string {
	parts := strings.Split(rpcURL, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
