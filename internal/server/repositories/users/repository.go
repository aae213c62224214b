package users

import (
	"context"

	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
)

// Repository persists accounts.
type Repository interface {
	// Create inserts a new account and fills in ID and CreatedAt. A taken
	// username yields common.ErrDuplicateUsername.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// AppendHistory pushes resultID onto the end of the account's history.
	AppendHistory(ctx context.Context, accountID, resultID string) error
}
