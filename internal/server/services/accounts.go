// Package services contains server-side business logic. This file implements
// AccountService, which handles registration, authentication and session
// tokens for the web tier.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/config"
	"github.com/dmitrijs2005/voicetranslator/internal/cryptox"
	"github.com/dmitrijs2005/voicetranslator/internal/server/auth"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/repomanager"
)

// AccountService provides account operations:
// - Register: create accounts with an argon2id verifier
// - Authenticate: check credentials
// - IssueSession / ParseSession / ResolveSession: mint and verify session tokens
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	sessionTTL  time.Duration
}

// NewAccountService constructs an AccountService using repositories and config.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		sessionTTL:  cfg.SessionTTL,
	}
}

// Register creates an account. Blank fields yield common.ErrValidation, a
// confirmation that differs from password yields common.ErrPasswordMismatch
// and a taken username yields common.ErrDuplicateUsername.
func (s *AccountService) Register(ctx context.Context, username, password, confirm string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}
	if password != confirm {
		return nil, common.ErrPasswordMismatch
	}

	salt := cryptox.NewSalt()
	account := &models.Account{
		Username:     username,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt),
	}

	repo := s.repomanager.Users(s.db)
	a, err := repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) {
			return nil, common.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return a, nil
}

// Authenticate returns the account for valid credentials. Unknown users and
// wrong passwords both yield common.ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	repo := s.repomanager.Users(s.db)
	account, err := repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same amount of work as a real check
			cryptox.VerifyPassword([]byte(password), cryptox.NewSalt(), nil)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !cryptox.VerifyPassword([]byte(password), account.Salt, account.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	return account, nil
}

// Account loads an account by id.
func (s *AccountService) Account(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return a, nil
}

// IssueSession mints a signed session token for account.
func (s *AccountService) IssueSession(account *models.Account) (string, error) {
	token, err := auth.GenerateToken(account.ID, account.Username, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// ParseSession verifies token and returns the session it carries.
func (s *AccountService) ParseSession(token string) (*auth.Session, error) {
	return auth.ParseToken(token, s.jwtSecret)
}

// ResolveSession verifies token and checks that its account still exists.
// A bad token or a deleted account yields common.ErrorUnauthorized.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (*auth.Session, error) {
	sess, err := s.ParseSession(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	if _, err := s.Account(ctx, sess.AccountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: account %s no longer exists", common.ErrorUnauthorized, sess.AccountID)
		}
		return nil, err
	}
	return sess, nil
}

// SessionTTL is the lifetime of issued session tokens.
func (s *AccountService) SessionTTL() time.Duration {
	return s.sessionTTL
}
