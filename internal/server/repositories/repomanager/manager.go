package repomanager

import (
	"context"
	"database/sql"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/dbx"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/audit"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/metrics"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// constructor serves both plain connections and transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Audit(db dbx.DBTX) audit.Repository
	Metrics(db dbx.DBTX) metrics.Repository
}
