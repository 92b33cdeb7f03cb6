package service

import "github.com/chainsocial/social-api/internal/core/domain"

// PermissionGate decides whether a set of granted permissions satisfies a
// login variant. A user holding extra permissions still passes.
type PermissionGate struct {
	required map[domain.LoginVariant][]domain.Permission
}

func NewPermissionGate() *PermissionGate {
	return &PermissionGate{
		required: map[domain.LoginVariant][]domain.Permission{
			domain.AdminLogin: {domain.PermissionAdmin},
			domain.UserLogin:  {domain.PermissionUser},
		},
	}
}

// Check reports whether granted intersects the permissions variant requires.
func (g *PermissionGate) Check(variant domain.LoginVariant, granted []domain.Permission) bool {
	return Intersects(g.required[variant], granted)
}

// Intersects reports whether any permission appears in both sets.
func Intersects(required, granted []domain.Permission) bool {
	for _, r := range required {
		for _, g := range granted {
			if r == g {
				return true
			}
		}
	}
	return false
}
