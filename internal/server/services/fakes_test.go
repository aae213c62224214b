package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/dbx"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	resultsrepo "github.com/dmitrijs2005/voicetranslator/internal/server/repositories/results"
	usersrepo "github.com/dmitrijs2005/voicetranslator/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	byName map[string]*models.Account
	err    error

	created []*models.Account
}

func (f *fakeUsersRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.byName[a.Username]; ok {
		return nil, common.ErrDuplicateUsername
	}
	a.ID = "id-" + a.Username
	f.created = append(f.created, a)
	if f.byName == nil {
		f.byName = map[string]*models.Account{}
	}
	f.byName[a.Username] = a
	return a, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.byName {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) AppendHistory(ctx context.Context, accountID, resultID string) error {
	return nil
}

type fakeResultsRepo struct {
	byID map[string]*models.Result
	list []*models.Result
	err  error
}

func (f *fakeResultsRepo) Create(ctx context.Context, r *models.Result) error { return f.err }

func (f *fakeResultsRepo) Get(ctx context.Context, id string) (*models.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeResultsRepo) GetByBlobID(ctx context.Context, blobID string) (*models.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.byID {
		if r.OutputBlobID == blobID {
			return r, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeResultsRepo) ListByOwnerHistory(ctx context.Context, ownerID string) ([]*models.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeResultsRepo) SetStatus(ctx context.Context, id string, status models.ResultStatus) error {
	return f.err
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeResultsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Results(db dbx.DBTX) resultsrepo.Repository   { return m.r }

type fakeBlobs struct {
	data map[string][]byte
	err  error
}

func (f *fakeBlobs) Upload(ctx context.Context, obj blobstore.Object, r io.Reader) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[obj.ID] = b
	return nil
}

func (f *fakeBlobs) Download(ctx context.Context, id string) (*blobstore.Object, io.ReadCloser, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	b, ok := f.data[id]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}
	return &blobstore.Object{ID: id, ContentType: "audio/wav", Size: int64(len(b))}, io.NopCloser(bytes.NewReader(b)), nil
}
