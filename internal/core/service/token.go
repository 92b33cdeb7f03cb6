package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chainsocial/social-api/internal/core/domain"
)

// JWTIssuer signs HS256 session tokens.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for user logged in with wallet. The claims carry
// the user id as subject, its permissions and the wallet address.
func (i *JWTIssuer) Issue(user *domain.User, wallet *domain.Wallet) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	perms := make([]string, 0, len(user.Permissions))
	for _, p := range user.Permissions {
		perms = append(perms, string(p))
	}
	now := i.now()
	claims := jwt.MapClaims{
		"sub":         user.ID,
		"username":    user.Username,
		"permissions": perms,
		"wallet":      wallet.ID,
		"iat":         now.Unix(),
		"exp":         now.Add(i.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}
