// Package crypto verifies wallet signatures for the supported wallet types.
//
// Ethereum wallets sign with personal_sign and are checked by recovering the
// signer address. Polkadot and NEAR wallets sign with ed25519 and are
// always checked against the public key encoded in the signing address: a
// Substrate address or a NEAR implicit account ("<hex>" or "ed25519:<base58>").
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const ed25519KeyPrefix = "ed25519:"

// Verifier implements ports.SignatureVerifier.
type Verifier struct{}

func NewVerifier() *Verifier { return &Verifier{} }

// Verify checks proof over message for the wallet at address. For ed25519
// schemes proof.PublicKey is optional and must name the address key.
func (v *Verifier) Verify(walletType domain.WalletType, address, message string, proof domain.SignatureProof) error {
	switch walletType {
	case domain.WalletEthereum:
		return verifyPersonalSign(address, message, proof.Signature)
	case domain.WalletPolkadot, domain.WalletNear:
		pub, err := decodeEd25519Key(address)
		if err != nil {
			return err
		}
		if proof.PublicKey != "" {
			claimed, err := decodeEd25519Key(proof.PublicKey)
			if err != nil {
				return err
			}
			if !pub.Equal(claimed) {
				return fmt.Errorf("%w: public key does not match address", domain.ErrSignatureVerification)
			}
		}
		return verifyEd25519(pub, message, proof.Signature)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedSigningScheme, walletType)
	}
}

// verifyPersonalSign recovers the signer of an EIP-191 personal message and
// compares it to address.
func verifyPersonalSign(address, message, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", domain.ErrSignatureVerification)
	}
	if len(sig) != ethcrypto.SignatureLength {
		return fmt.Errorf("%w: signature must be %d bytes", domain.ErrSignatureVerification, ethcrypto.SignatureLength)
	}
	// Wallets emit v as 27/28.
	if sig[ethcrypto.RecoveryIDOffset] >= 27 {
		sig[ethcrypto.RecoveryIDOffset] -= 27
	}

	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSignatureVerification, err)
	}
	if !strings.EqualFold(ethcrypto.PubkeyToAddress(*pub).Hex(), address) {
		return domain.ErrSignatureVerification
	}
	return nil
}

// verifyEd25519 accepts the plain message or the "<Bytes>…</Bytes>" framing
// browser extensions add to raw payloads.
func verifyEd25519(pub ed25519.PublicKey, message, signature string) error {
	sig, err := decodeHex(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", domain.ErrSignatureVerification)
	}

	if ed25519.Verify(pub, []byte(message), sig) {
		return nil
	}
	if ed25519.Verify(pub, []byte("<Bytes>"+message+"</Bytes>"), sig) {
		return nil
	}
	return domain.ErrSignatureVerification
}

// NearPublicKey renders key in the "ed25519:<base58>" form NEAR RPC nodes
// expect.
func NearPublicKey(key string) (string, error) {
	pub, err := decodeEd25519Key(key)
	if err != nil {
		return "", err
	}
	return ed25519KeyPrefix + base58.Encode(pub), nil
}

// decodeEd25519Key understands "0x<hex>", "<hex>" and NEAR's "ed25519:<base58>".
func decodeEd25519Key(key string) (ed25519.PublicKey, error) {
	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(key, ed25519KeyPrefix) {
		raw, err = base58.Decode(strings.TrimPrefix(key, ed25519KeyPrefix))
	} else {
		raw, err = decodeHex(key)
	}
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: malformed public key", domain.ErrSignatureVerification)
	}
	return ed25519.PublicKey(raw), nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
