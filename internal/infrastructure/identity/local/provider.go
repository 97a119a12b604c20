// Package local is an identity provider backed by the account collection in
// MongoDB. Passwords are bcrypt hashes and credentials are HS256 JWTs.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

const (
	defaultTokenTTL   = 5 * time.Minute
	minPasswordLength = 6
	// reuseMargin is the remaining lifetime below which a cached token is
	// not handed out again.
	reuseMargin = 30 * time.Second
)

var _ ports.IdentityProvider = (*Provider)(nil)

type issued struct {
	token   string
	version int64
	expires time.Time
}

// Provider implements ports.IdentityProvider.
type Provider struct {
	repo     ports.AccountRepository
	secret   []byte
	tokenTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	tokens map[string]issued
}

func NewProvider(repo ports.AccountRepository, secret string, tokenTTL time.Duration, log zerolog.Logger) *Provider {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &Provider{
		repo:     repo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		tokens:   make(map[string]issued),
	}
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	acc, err := p.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, unavailable("find account", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	acc.LastSignInAt = p.now()
	if err := p.repo.TouchSignIn(ctx, acc.ID, acc.LastSignInAt); err != nil {
		p.log.Warn().Err(err).Str("uid", acc.ID).Msg("could not record sign-in time")
	}
	return acc.Identity(), nil
}

func (p *Provider) Register(ctx context.Context, email, password string, profile domain.ProfilePatch) (*domain.Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := p.now()
	acc := &domain.Account{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		LastSignInAt: now,
	}
	if profile.DisplayName != nil {
		acc.DisplayName = strings.TrimSpace(*profile.DisplayName)
	}
	if profile.PhotoURL != nil {
		acc.PhotoURL = strings.TrimSpace(*profile.PhotoURL)
	}

	created, err := p.repo.Create(ctx, acc)
	if errors.Is(err, domain.ErrEmailInUse) {
		return nil, domain.ErrEmailInUse
	}
	if err != nil {
		return nil, unavailable("create account", err)
	}
	p.log.Info().Str("uid", created.ID).Msg("account registered")
	return created.Identity(), nil
}

// SignOut revokes every credential minted for uid so far.
func (p *Provider) SignOut(ctx context.Context, uid string) error {
	p.forget(uid)
	err := p.repo.BumpSessionVersion(ctx, uid)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return unavailable("revoke session", err)
	}
	return nil
}

// Token returns a signed credential for uid. Without forceRefresh an earlier
// token is reused while it is still comfortably valid.
func (p *Provider) Token(ctx context.Context, uid string, forceRefresh bool) (string, error) {
	acc, err := p.repo.FindByID(ctx, uid)
	if errors.Is(err, domain.ErrAccountNotFound) {
		p.forget(uid)
		return "", domain.ErrNotSignedIn
	}
	if err != nil {
		return "", unavailable("find account", err)
	}

	now := p.now()
	if !forceRefresh {
		p.mu.Lock()
		prev, ok := p.tokens[uid]
		p.mu.Unlock()
		if ok && prev.version == acc.SessionVersion && prev.expires.Sub(now) > reuseMargin {
			return prev.token, nil
		}
	}

	expires := now.Add(p.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   acc.ID,
		"email": acc.Email,
		"ver":   acc.SessionVersion,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	p.mu.Lock()
	p.tokens[uid] = issued{token: token, version: acc.SessionVersion, expires: expires}
	p.mu.Unlock()
	return token, nil
}

func (p *Provider) UpdateProfile(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Identity, error) {
	acc, err := p.repo.UpdateProfile(ctx, uid, patch)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrNotSignedIn
	}
	if err != nil {
		return nil, unavailable("update profile", err)
	}
	return acc.Identity(), nil
}

func (p *Provider) DeleteAccount(ctx context.Context, uid string) error {
	p.forget(uid)
	if err := p.repo.Delete(ctx, uid); err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return unavailable("delete account", err)
	}
	return nil
}

func (p *Provider) forget(uid string) {
	p.mu.Lock()
	delete(p.tokens, uid)
	p.mu.Unlock()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, op, err)
}
