package commerce

import (
	"context"
	"strings"

	"storefront/internal/model"
)

// sharedLockKey guards the registered-user list.
const sharedLockKey = "shared:users"

// Register adds a user to the registry. It does not log the user in.
// All fields are required and emails are unique, ignoring case.
func (s *Service) Register(ctx context.Context, origin string, user model.User) (*model.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	user.Address = strings.TrimSpace(user.Address)
	if err := model.Validate(&user); err != nil {
		return nil, err
	}
	if strings.EqualFold(user.Email, s.config.AdminEmail) {
		return nil, model.NewValidationError("email", "is already registered")
	}

	unlock := s.locks.Lock(sharedLockKey)
	defer unlock()

	users, err := loadUsers(ctx, s.store)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if userIndex(users, user.Email) >= 0 {
		return nil, model.NewValidationError("email", "is already registered")
	}

	if err := saveUsers(ctx, s.store, origin, append(users, user)); err != nil {
		return nil, model.NewInternalError(err)
	}
	s.logger.Info("user registered", "email", user.Email)
	return &user, nil
}

// Session returns the current session, or nil when logged out.
func (sh *Shopper) Session(ctx context.Context) (*model.Session, error) {
	session, err := sh.state.session(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return session, nil
}

// Login starts a session. The configured admin credentials yield an admin
// session; a registry match yields a user session.
func (sh *Shopper) Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := model.Validate(&creds); err != nil {
		return nil, err
	}

	cfg := sh.svc.config
	var result model.LoginResult
	switch {
	case cfg.AdminEmail != "" && strings.EqualFold(creds.Email, cfg.AdminEmail) && creds.Password == cfg.AdminPassword:
		result = model.LoginResult{
			Session:  model.Session{Username: cfg.AdminName, Email: cfg.AdminEmail, Role: model.RoleAdmin},
			Redirect: model.RedirectAdmin,
		}
	default:
		users, err := loadUsers(ctx, sh.svc.store)
		if err != nil {
			return nil, model.NewInternalError(err)
		}
		idx := userIndex(users, creds.Email)
		if idx < 0 || users[idx].Password != creds.Password {
			sh.logger.Info("login rejected", "email", creds.Email)
			return nil, model.NewUnauthorizedError("wrong email or password")
		}
		u := users[idx]
		result = model.LoginResult{
			Session:  model.Session{Username: u.Username, Email: u.Email, Address: u.Address, Role: model.RoleUser},
			Redirect: model.RedirectDashboard,
		}
	}

	unlock := sh.lock()
	defer unlock()
	if err := sh.state.saveSession(ctx, result.Session); err != nil {
		return nil, model.NewInternalError(err)
	}
	sh.logger.Info("logged in", "email", result.Session.Email, "role", string(result.Session.Role))
	return &result, nil
}

// Logout ends the session and clears the cart, wishlist and any pending draft.
func (sh *Shopper) Logout(ctx context.Context) error {
	unlock := sh.lock()
	defer unlock()

	for _, key := range []string{KeySession, KeyCart, KeyWishlist, KeyPendingOrder} {
		if err := sh.state.remove(ctx, key); err != nil {
			return model.NewInternalError(err)
		}
	}
	sh.logger.Info("logged out")
	return nil
}

// UpdateProfile replaces the session's profile fields and the matching
// registry record. Requires a session.
func (sh *Shopper) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.Session, error) {
	update.Username = strings.TrimSpace(update.Username)
	update.Email = strings.TrimSpace(update.Email)
	update.Address = strings.TrimSpace(update.Address)
	if err := model.Validate(&update); err != nil {
		return nil, err
	}

	unlock := sh.lock()
	defer unlock()

	current, err := sh.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	if !current.IsAdmin() {
		if err := sh.svc.updateRegistry(ctx, sh.state.origin, current.Email, update); err != nil {
			return nil, err
		}
	}

	next := model.Session{
		Username: update.Username,
		Email:    update.Email,
		Address:  update.Address,
		Role:     current.Role,
	}
	if err := sh.state.saveSession(ctx, next); err != nil {
		return nil, model.NewInternalError(err)
	}
	sh.logger.Info("profile updated", "email", next.Email)
	return &next, nil
}

// updateRegistry rewrites the registry record registered under email.
// Sessions without a registry record (older stores) only update the session.
func (s *Service) updateRegistry(ctx context.Context, origin, email string, update model.ProfileUpdate) error {
	unlock := s.locks.Lock(sharedLockKey)
	defer unlock()

	users, err := loadUsers(ctx, s.store)
	if err != nil {
		return model.NewInternalError(err)
	}
	idx := userIndex(users, email)
	if idx < 0 {
		return nil
	}
	if other := userIndex(users, update.Email); other >= 0 && other != idx {
		return model.NewValidationError("email", "is already registered")
	}

	u := &users[idx]
	u.Username = update.Username
	u.Email = update.Email
	u.Address = update.Address
	if update.Password != "" {
		u.Password = update.Password
	}

	if err := saveUsers(ctx, s.store, origin, users); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

func userIndex(users []model.User, email string) int {
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return i
		}
	}
	return -1
}
