package results

import (
	"context"

	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
)

// Repository persists result records.
type Repository interface {
	// Create inserts r with its pre-allocated ID.
	Create(ctx context.Context, r *models.Result) error
	Get(ctx context.Context, id string) (*models.Result, error)
	GetByBlobID(ctx context.Context, blobID string) (*models.Result, error)
	// ListByOwnerHistory returns the owner's completed results in account
	// history order.
	ListByOwnerHistory(ctx context.Context, ownerID string) ([]*models.Result, error)
	SetStatus(ctx context.Context, id string, status models.ResultStatus) error
}
