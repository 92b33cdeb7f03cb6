package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chainsocial/social-api/internal/api/metrics"
	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup creates a user with its first wallet.
//
// @Summary      Sign up with a wallet
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account and wallet details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	user, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Name:     req.Name,
		Username: req.Username,
		Wallet: ports.WalletInput{
			Address:   req.Address,
			Type:      domain.WalletType(req.WalletType),
			NetworkID: req.Network,
		},
	})
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(resultLabel(err)).Inc()
		return err
	}

	metrics.SignupsTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// Login verifies a signed nonce and returns a session token.
//
// @Summary      Login with a wallet signature
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Signed nonce challenge"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, domain.UserLogin)
}

// AdminLogin is Login for accounts holding the admin permission.
//
// @Summary      Admin login with a wallet signature
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Signed nonce challenge"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, domain.AdminLogin)
}

func (h *AuthHandler) login(c echo.Context, variant domain.LoginVariant) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	result, err := h.authService.Login(c.Request().Context(), variant, domain.Credential{
		PublicAddress: req.PublicAddress,
		Nonce:         req.Nonce,
		WalletType:    domain.WalletType(req.WalletType),
		NetworkID:     req.NetworkType,
		Signature: domain.SignatureProof{
			Signature: req.Signature.Signature,
			PublicKey: req.Signature.PublicKey,
		},
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues(variant.String(), resultLabel(err)).Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues(variant.String(), "ok").Inc()
	return c.JSON(http.StatusOK, authResponse{Token: result.Token, User: result.User, Wallet: result.Wallet})
}

// Nonce returns the challenge the wallet must sign to log in.
//
// @Summary      Get the login nonce of a wallet
// @Tags         auth
// @Produce      json
// @Param        id   path      string  true  "Wallet address"
// @Success      200  {object}  nonceResponse
// @Failure      500  {object}  errorResponse
// @Router       /wallets/{id}/nonce [get]
func (h *AuthHandler) Nonce(c echo.Context) error {
	nonce, err := h.authService.Nonce(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonceResponse{Nonce: nonce})
}

// resultLabel turns err into a bounded metric label.
func resultLabel(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
