package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ResultService serves owner-scoped reads of stored results and their audio.
//
// Records that exist but belong to another account are reported as
// common.ErrorForbidden; callers facing the network must treat that the
// same as common.ErrorNotFound.
type ResultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
}

func NewResultService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store) *ResultService {
	return &ResultService{db: db, repomanager: m, blobs: blobs}
}

// Get returns the completed result id if requesterID owns it.
func (s *ResultService) Get(ctx context.Context, id, requesterID string) (*models.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	r, err := s.repomanager.Results(s.db).Get(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	return authorize(r, requesterID)
}

// List returns requesterID's completed results in history order.
func (s *ResultService) List(ctx context.Context, requesterID string) ([]*models.Result, error) {
	list, err := s.repomanager.Results(s.db).ListByOwnerHistory(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return list, nil
}

// OpenAudio streams the output blob blobID if requesterID owns the result
// that produced it. The caller closes the reader.
func (s *ResultService) OpenAudio(ctx context.Context, blobID, requesterID string) (*blobstore.Object, io.ReadCloser, error) {
	if _, err := uuid.Parse(blobID); err != nil {
		return nil, nil, common.ErrorNotFound
	}

	r, err := s.repomanager.Results(s.db).GetByBlobID(ctx, blobID)
	if err != nil {
		return nil, nil, s.mapRepoErr(err)
	}
	if _, err := authorize(r, requesterID); err != nil {
		return nil, nil, err
	}

	obj, rc, err := s.blobs.Download(ctx, blobID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if obj.Filename == "" {
		obj.Filename = "translated_" + r.OriginalFilename
	}
	return obj, rc, nil
}

func (s *ResultService) mapRepoErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

func authorize(r *models.Result, requesterID string) (*models.Result, error) {
	if !r.Visible() {
		return nil, common.ErrorNotFound
	}
	if r.OwnerID != requesterID {
		return nil, common.ErrorForbidden
	}
	return r, nil
}
