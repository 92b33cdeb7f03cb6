package domain

import "time"

// Permission is a capability key granted to a user.
type Permission string

const (
	PermissionAdmin Permission = "admin"
	PermissionUser  Permission = "user"
)

// WalletType identifies the signing scheme family of a wallet.
type WalletType string

const (
	WalletPolkadot WalletType = "polkadot"
	WalletEthereum WalletType = "ethereum"
	WalletNear     WalletType = "near"
)

// Valid reports whether t is a known wallet type.
func (t WalletType) Valid() bool {
	switch t {
	case WalletPolkadot, WalletEthereum, WalletNear:
		return true
	}
	return false
}

// ChainKind is the address family an address was recognised as.
type ChainKind string

const (
	ChainSubstrate ChainKind = "substrate"
	ChainEVM       ChainKind = "evm"
	ChainNear      ChainKind = "near"
)

// User models an account authenticated by wallet signatures.
type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Name        string       `json:"name"`
	Nonce       int64        `json:"-"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// HasPermission reports whether p is among the user's permissions.
func (u *User) HasPermission(p Permission) bool {
	for _, granted := range u.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// Wallet is a chain address owned by a user. ID is the address itself.
type Wallet struct {
	ID        string     `json:"id"`
	Type      WalletType `json:"type"`
	NetworkID string     `json:"network_id"`
	Primary   bool       `json:"primary"`
	UserID    string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Network identifies a chain deployment a wallet can belong to.
type Network struct {
	ID         string   `json:"id"`
	RPCURL     string   `json:"rpc_url"`
	ChainID    int64    `json:"chain_id,omitempty"`
	Currencies []string `json:"currencies,omitempty"`
}

// ActivityType names an entry in the activity log.
type ActivityType string

const ActivityNewUser ActivityType = "new_user"

// ActivityEntry is a single fire-and-forget activity log record.
type ActivityEntry struct {
	Type          ActivityType
	UserID        string
	ReferenceID   string
	ReferenceType string
	CreatedAt     time.Time
}
