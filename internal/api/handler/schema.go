package handler

import "github.com/chainsocial/social-api/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// --- Auth ---

type signupRequest struct {
	Name       string `json:"name"        validate:"required"`
	Username   string `json:"username"    validate:"required"`
	Address    string `json:"address"     validate:"required"`
	WalletType string `json:"wallet_type" validate:"required,oneof=polkadot ethereum near"`
	Network    string `json:"network"     validate:"required"`
}

type signatureRequest struct {
	Signature string `json:"signature"  validate:"required"`
	PublicKey string `json:"public_key"`
}

type loginRequest struct {
	PublicAddress string           `json:"public_address"  validate:"required"`
	Nonce         int64            `json:"nonce"`
	WalletType    string           `json:"wallet_type"`
	NetworkType   string           `json:"network_type"`
	Signature     signatureRequest `json:"signature_proof" validate:"required"`
}

type authResponse struct {
	Token  string         `json:"token,omitempty"`
	User   *domain.User   `json:"user"`
	Wallet *domain.Wallet `json:"wallet,omitempty"`
}

type nonceResponse struct {
	Nonce int64 `json:"nonce"`
}

// --- Social ---

type verifySocialRequest struct {
	PublicKey string `json:"public_key" validate:"required"`
	Username  string `json:"username"   validate:"required"`
	Platform  string `json:"platform"   validate:"required,oneof=twitter reddit facebook"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}
