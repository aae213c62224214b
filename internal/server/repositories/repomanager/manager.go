package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/voicetranslator/internal/dbx"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/results"
	"github.com/dmitrijs2005/voicetranslator/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Results(db dbx.DBTX) results.Repository
}
