package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chainsocial/social-api/internal/api/metrics"
	"github.com/chainsocial/social-api/internal/api/middleware"
	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

// SocialHandler handles social account verification.
type SocialHandler struct {
	verifier ports.SocialVerifier
}

func NewSocialHandler(verifier ports.SocialVerifier) *SocialHandler {
	return &SocialHandler{verifier: verifier}
}

// Verify handles POST /user-social-medias/verify.
//
// @Summary      Verify a social account
// @Description  Links the social account to the wallet when a recent post contains the wallet public key.
// @Tags         social
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifySocialRequest  true  "Account to verify"
// @Success      200   {object}  verifyResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /user-social-medias/verify [post]
func (h *SocialHandler) Verify(c echo.Context) error {
	var req verifySocialRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	// A session can only claim accounts for its own wallet.
	wallet, _ := c.Get(middleware.ContextWallet).(string)
	if wallet != req.PublicKey {
		return domain.ErrForbidden
	}

	ok, err := h.verifier.Verify(c.Request().Context(), req.PublicKey, req.Username, domain.Platform(req.Platform))
	if err != nil {
		metrics.SocialVerificationsTotal.WithLabelValues(req.Platform, resultLabel(err)).Inc()
		return err
	}

	metrics.SocialVerificationsTotal.WithLabelValues(req.Platform, "ok").Inc()
	return c.JSON(http.StatusOK, verifyResponse{Verified: ok})
}

// VerifyLink handles POST /user-social-medias/:userId/:peopleId/verify.
//
// @Summary      Re-check a social account link
// @Description  Removes the link when the account no longer shows the wallet key.
// @Tags         social
// @Produce      json
// @Security     BearerAuth
// @Param        userId    path      string  true  "Wallet address"
// @Param        peopleId  path      string  true  "People id"
// @Success      200       {object}  verifyResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /user-social-medias/{userId}/{peopleId}/verify [post]
func (h *SocialHandler) VerifyLink(c echo.Context) error {
	ok := h.verifier.VerifyLink(c.Request().Context(), c.Param("userId"), c.Param("peopleId"))
	return c.JSON(http.StatusOK, verifyResponse{Verified: ok})
}
