package domain

import (
	"strconv"
	"strings"
)

// SignatureProof carries the signature a wallet produced over the login
// challenge. PublicKey is optional; when set it must name the key encoded
// in the signing address.
type SignatureProof struct {
	Signature string `json:"signature"`
	PublicKey string `json:"public_key,omitempty"`
}

// Credential is built per login attempt and never persisted.
//
// PublicAddress may carry two parts joined by '/': the primary signing
// address and a secondary account (for example "0xabc…/alice.near").
type Credential struct {
	PublicAddress string         `json:"public_address"`
	Nonce         int64          `json:"nonce"`
	WalletType    WalletType     `json:"wallet_type"`
	NetworkID     string         `json:"network_type"`
	Signature     SignatureProof `json:"signature_proof"`
}

// SplitAddress returns the primary address and the optional sub account.
func (c Credential) SplitAddress() (primary, subAccount string) {
	primary, subAccount, _ = strings.Cut(c.PublicAddress, "/")
	return primary, subAccount
}

// WalletID is the wallet record id the credential refers to: the sub
// account when present, the primary address otherwise.
func (c Credential) WalletID() string {
	primary, sub := c.SplitAddress()
	if sub != "" {
		return sub
	}
	return primary
}

// LoginVariant selects the capability a login must prove.
type LoginVariant int

const (
	UserLogin LoginVariant = iota
	AdminLogin
)

func (v LoginVariant) String() string {
	if v == AdminLogin {
		return "admin"
	}
	return "user"
}

// ChallengeMessage is the text a wallet signs to prove it holds the key
// for a login: the nonce as 0x-prefixed lowercase hex.
func ChallengeMessage(nonce int64) string {
	return "0x" + strconv.FormatInt(nonce, 16)
}
