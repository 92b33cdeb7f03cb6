package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

// --- identity ---

type stubIdentityRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	wallets  map[string]*domain.Wallet
	networks map[string]*domain.Network
	settings map[string]int
	nextID   int
	findErr  error
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{
		users:   make(map[string]*domain.User),
		wallets: make(map[string]*domain.Wallet),
		networks: map[string]*domain.Network{
			"eth":      {ID: "eth", RPCURL: "https://rpc.mainnet.example.org", Currencies: []string{"ETH"}},
			"near":     {ID: "near", RPCURL: "https://rpc.mainnet.near.org"},
			"near-dev": {ID: "near-dev", RPCURL: "https://rpc.development.near.org"},
		},
		settings: make(map[string]int),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Permissions = append([]domain.Permission(nil), u.Permissions...)
	return &clone
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	clone := *w
	return &clone
}

func (r *stubIdentityRepo) WalletExists(_ context.Context, address string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.wallets[address]
	return ok, nil
}

func (r *stubIdentityRepo) NetworkExists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.networks[id]
	return ok, nil
}

func (r *stubIdentityRepo) FindNetwork(_ context.Context, id string) (*domain.Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.networks[id]
	if !ok {
		return nil, domain.ErrUnknownNetwork
	}
	clone := *n
	return &clone, nil
}

func (r *stubIdentityRepo) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubIdentityRepo) FindWalletWithOwner(_ context.Context, id string, walletType domain.WalletType) (*domain.Wallet, *domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, nil, r.findErr
	}
	w, ok := r.wallets[id]
	if !ok || (walletType != "" && w.Type != walletType) {
		return nil, nil, domain.ErrWalletNotFound
	}
	u, ok := r.users[w.UserID]
	if !ok {
		return nil, nil, domain.ErrUserNotFound
	}
	return cloneWallet(w), cloneUser(u), nil
}

func (r *stubIdentityRepo) CreateUser(_ context.Context, user *domain.User, wallet *domain.Wallet) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.wallets[wallet.ID]; exists {
		return nil, domain.ErrDuplicateWallet
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[created.ID] = cloneUser(created)

	stored := cloneWallet(wallet)
	stored.UserID = created.ID
	r.wallets[stored.ID] = stored
	return created, nil
}

func (r *stubIdentityRepo) UpdateUserNonce(_ context.Context, userID string, nonce int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Nonce = nonce
	return nil
}

func (r *stubIdentityRepo) SetPrimaryWallet(_ context.Context, userID string, walletType domain.WalletType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			w.Primary = w.Type == walletType
		}
	}
	return nil
}

func (r *stubIdentityRepo) SeedSettings(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[userID]++
	return nil
}

// addUser registers a user owning one wallet and returns the stored user.
func (r *stubIdentityRepo) addUser(id string, nonce int64, perms []domain.Permission, wallet domain.Wallet) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &domain.User{ID: id, Username: id, Nonce: nonce, Permissions: perms}
	r.users[id] = u
	wallet.UserID = id
	r.wallets[wallet.ID] = &wallet
	return cloneUser(u)
}

func (r *stubIdentityRepo) nonceOf(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID].Nonce
}

// --- collaborators ---

type stubVerifier struct {
	err     error
	calls   int
	address string
	message string
}

func (v *stubVerifier) Verify(_ domain.WalletType, address, message string, _ domain.SignatureProof) error {
	v.calls++
	v.address = address
	v.message = message
	return v.err
}

// stubAccessKeys holds access keys per account, as "account/key" entries.
type stubAccessKeys struct {
	keys   map[string]bool
	err    error
	rpcURL string
}

func (k *stubAccessKeys) HasAccessKey(_ context.Context, rpcURL, accountID, publicKey string) (bool, error) {
	k.rpcURL = rpcURL
	if k.err != nil {
		return false, k.err
	}
	return k.keys[accountID+"/"+publicKey], nil
}

type stubTokens struct{}

func (stubTokens) Issue(user *domain.User, _ *domain.Wallet) (string, error) {
	return "token-" + user.ID, nil
}

type stubCurrency struct {
	mu       sync.Mutex
	seeded   []string
	refresh  []string
	rewarded []string
	err      error
}

func (c *stubCurrency) SeedBalances(_ context.Context, userID, networkID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeded = append(c.seeded, userID+"@"+networkID)
	return c.err
}

func (c *stubCurrency) RefreshBalance(_ context.Context, userID, networkID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = append(c.refresh, userID+"@"+networkID)
	return c.err
}

func (c *stubCurrency) GrantSignupReward(_ context.Context, walletID string, _ domain.WalletType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rewarded = append(c.rewarded, walletID)
	return c.err
}

type stubConnections struct{ users []string }

func (c *stubConnections) CreateDefaultConnection(_ context.Context, userID string) error {
	c.users = append(c.users, userID)
	return nil
}

type stubActivity struct{ entries []domain.ActivityEntry }

func (a *stubActivity) Record(_ context.Context, entry domain.ActivityEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

// heldQueue keeps submitted tasks until run is called, which lets tests
// observe the state between the response and the side effects.
type heldQueue struct {
	mu    sync.Mutex
	tasks []ports.Task
}

func (q *heldQueue) Submit(task ports.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// run executes and drains the held tasks, returning the first error.
func (q *heldQueue) run(ctx context.Context) error {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	var errs []error
	for _, task := range tasks {
		if err := task.Run(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (q *heldQueue) names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.tasks))
	for _, t := range q.tasks {
		names = append(names, t.Name)
	}
	return names
}

func (q *heldQueue) ids() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.tasks))
	for _, t := range q.tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func (q *heldQueue) task(name string) (ports.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.Name == name {
			return t, true
		}
	}
	return ports.Task{}, false
}

// --- social ---

type stubPeopleRepo struct {
	people      map[string]*domain.People
	credentials map[string]*domain.UserCredential
	upserts     int
	deleted     []string
}

func newStubPeopleRepo() *stubPeopleRepo {
	return &stubPeopleRepo{
		people:      make(map[string]*domain.People),
		credentials: make(map[string]*domain.UserCredential),
	}
}

func (r *stubPeopleRepo) FindPeople(_ context.Context, platform domain.Platform, accountID string) (*domain.People, error) {
	for _, p := range r.people {
		if p.Platform == platform && p.PlatformAccountID == accountID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrPeopleNotFound
}

func (r *stubPeopleRepo) FindPeopleByID(_ context.Context, id string) (*domain.People, error) {
	p, ok := r.people[id]
	if !ok {
		return nil, domain.ErrPeopleNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubPeopleRepo) CreatePeople(_ context.Context, people *domain.People) (*domain.People, error) {
	clone := *people
	r.people[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubPeopleRepo) FindCredential(_ context.Context, userID, peopleID string) (*domain.UserCredential, error) {
	for _, c := range r.credentials {
		if c.UserID == userID && c.PeopleID == peopleID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrCredentialNotFound
}

func (r *stubPeopleRepo) FindCredentialByPlatform(_ context.Context, userID string, platform domain.Platform) (*domain.UserCredential, error) {
	for _, c := range r.credentials {
		if c.UserID == userID && c.Platform == platform {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrCredentialNotFound
}

func (r *stubPeopleRepo) UpsertCredential(_ context.Context, cred *domain.UserCredential) (*domain.UserCredential, error) {
	r.upserts++
	for id, c := range r.credentials {
		if c.UserID == cred.UserID && c.PeopleID == cred.PeopleID {
			updated := *cred
			updated.ID = id
			r.credentials[id] = &updated
			out := updated
			return &out, nil
		}
	}
	clone := *cred
	r.credentials[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubPeopleRepo) DeleteCredential(_ context.Context, id string) error {
	delete(r.credentials, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type stubReader struct {
	account *ports.SocialAccount
	posts   []domain.SocialPost
	err     error
}

func (r *stubReader) FetchAccount(_ context.Context, _ string) (*ports.SocialAccount, error) {
	if r.err != nil {
		return nil, r.err
	}
	clone := *r.account
	return &clone, nil
}

func (r *stubReader) FetchRecentPosts(_ context.Context, _ *ports.SocialAccount) ([]domain.SocialPost, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.posts, nil
}

type stubSweeper struct {
	targets []string
	filters []domain.PostFilter
}

func (s *stubSweeper) Sweep(_ context.Context, target string, filter domain.PostFilter) error {
	s.targets = append(s.targets, target)
	s.filters = append(s.filters, filter)
	return nil
}

// --- chain ---

type stubPostRepo struct {
	posts  []*domain.Post
	err    error
	filter domain.PostFilter
}

func (r *stubPostRepo) FindEscrowPosts(_ context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	r.filter = filter
	return r.posts, r.err
}

type stubSigner struct{ address string }

func (s stubSigner) Address() string { return s.address }

func (s stubSigner) PrivateKey() *ecdsa.PrivateKey { return nil }

type stubDeriver struct{}

// DeriveKey maps post id "p1" to escrow address "escrow-p1".
func (stubDeriver) DeriveKey(seed string) (ports.ChainSigner, error) {
	return stubSigner{address: "escrow-" + seed}, nil
}

type transfer struct {
	from   string
	to     string
	amount *big.Int
}

type stubConn struct {
	balances    map[string]*big.Int
	failFrom    map[string]bool
	transfers   []transfer
	closed      int
	balanceErrs map[string]error
	// block makes Transfer wait for ctx to end, like an unmined transaction.
	block bool
}

func (c *stubConn) Balance(_ context.Context, address string) (*big.Int, error) {
	if err := c.balanceErrs[address]; err != nil {
		return nil, err
	}
	if b, ok := c.balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *stubConn) Transfer(ctx context.Context, signer ports.ChainSigner, to string, amount *big.Int) (*ports.TransferReceipt, error) {
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.failFrom[signer.Address()] {
		return nil, errors.New("nonce too low")
	}
	c.transfers = append(c.transfers, transfer{from: signer.Address(), to: to, amount: amount})
	return &ports.TransferReceipt{TxHash: "0xhash", Amount: amount}, nil
}

func (c *stubConn) Close() { c.closed++ }

type stubChain struct {
	conn *stubConn
	err  error
}

func (c *stubChain) Connect(_ context.Context) (ports.ChainConn, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.conn, nil
}
