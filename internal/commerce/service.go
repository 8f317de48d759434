// Package commerce implements the per-profile shopping state: session, cart,
// wishlist, checkout drafts and order history, plus the account operations
// that create and destroy sessions.
//
// State is always re-read from the store. Mutations of one profile are
// serialized so a read-modify-write never interleaves with another request
// for the same profile.
package commerce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"storefront/internal/model"
	"storefront/internal/storage"
)

// ProductLookup resolves product ids against the reconciled catalog.
type ProductLookup interface {
	Product(ctx context.Context, id int64) (*model.Product, error)
}

// Config holds the account and payment settings of the store.
type Config struct {
	AdminEmail      string
	AdminPassword   string
	AdminName       string
	TransferAccount string
}

// Service creates Shoppers and owns the shared locks.
type Service struct {
	store   *storage.Store
	catalog ProductLookup
	ids     *snowflake.Node
	config  Config
	logger  *slog.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// NewService creates a commerce service.
func NewService(store *storage.Store, catalog ProductLookup, node *snowflake.Node, config Config, logger *slog.Logger) *Service {
	if config.AdminName == "" {
		config.AdminName = "Admin"
	}
	return &Service{
		store:   store,
		catalog: catalog,
		ids:     node,
		config:  config,
		logger:  logger,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Shopper returns the state object of one profile, acting on behalf of tab.
// Shoppers are cheap and hold no cached state.
func (s *Service) Shopper(profile, tab string) *Shopper {
	ns := storage.ProfileNamespace(profile)
	return &Shopper{
		svc:     s,
		profile: profile,
		state: &profileState{
			store:     s.store,
			namespace: ns,
			origin:    tab,
		},
		logger: s.logger.With("profile", profile),
	}
}

// PaymentOptions lists the accepted payment methods with their instructions.
func (s *Service) PaymentOptions() []model.PaymentOption {
	transfer := "Transfer the order total to the store account, then confirm payment."
	if s.config.TransferAccount != "" {
		transfer = "Transfer the order total to account " + s.config.TransferAccount + ", then confirm payment."
	}
	return []model.PaymentOption{
		{Method: model.PaymentCOD, Label: "Cash on delivery"},
		{Method: model.PaymentTransfer, Label: "Bank transfer", Instructions: transfer},
	}
}

// Shopper is the explicit per-profile application state.
type Shopper struct {
	svc     *Service
	profile string
	state   *profileState
	logger  *slog.Logger
}

// Profile returns the profile id this shopper acts on.
func (sh *Shopper) Profile() string {
	return sh.profile
}

// lock serializes mutations of this profile and returns the unlock func.
func (sh *Shopper) lock() func() {
	return sh.svc.locks.Lock(sh.state.namespace)
}

// requireSession returns the current session or a login precondition failure.
func (sh *Shopper) requireSession(ctx context.Context) (*model.Session, error) {
	session, err := sh.state.session(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if session == nil {
		return nil, model.NewLoginRequiredError()
	}
	return session, nil
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
