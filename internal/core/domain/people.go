package domain

import "time"

// Platform is a supported social network.
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformReddit   Platform = "reddit"
	PlatformFacebook Platform = "facebook"
)

// People is a social-media persona, independent of any wallet.
type People struct {
	ID                string    `json:"id"`
	Platform          Platform  `json:"platform"`
	PlatformAccountID string    `json:"platform_account_id"`
	Username          string    `json:"username"`
	ProfileImageURL   string    `json:"profile_image_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserCredential links a wallet (UserID is the wallet address) to a persona.
// A wallet holds at most one persona per platform.
type UserCredential struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PeopleID  string    `json:"people_id"`
	Platform  Platform  `json:"platform"`
	IsLogin   bool      `json:"is_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SocialPost is a post or tweet as returned by a platform read client.
type SocialPost struct {
	ID   string
	Text string
}

// PlatformUser identifies the social account a post was imported from.
type PlatformUser struct {
	Platform          Platform `json:"platform" bson:"platform"`
	PlatformAccountID string   `json:"platform_account_id" bson:"platform_account_id"`
	Username          string   `json:"username" bson:"username"`
}

// Post is an imported post whose escrow wallet may hold tips for the
// persona that wrote it.
type Post struct {
	ID            string        `json:"id"`
	WalletAddress string        `json:"wallet_address"`
	PlatformUser  *PlatformUser `json:"platform_user,omitempty"`
}

// PostFilter selects escrow posts to sweep.
type PostFilter struct {
	Platform          Platform
	PlatformAccountID string
	// ExcludeWallet drops posts whose escrow address equals it (the sweep target).
	ExcludeWallet string
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformReddit, PlatformFacebook:
		return true
	}
	return false
}
