package migrations

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTx captures statements executed through the transaction.
type recordingTx struct {
	pgx.Tx
	statements []string
}

func (t *recordingTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.statements = append(t.statements, sql)
	return pgconn.CommandTag{}, nil
}

func TestRecordMigrationWritesThroughTransaction(t *testing.T) {
	// nil pool: any write bypassing the tx would panic
	m := &Migrator{}
	tx := &recordingTx{}

	require.NoError(t, m.recordMigration(context.Background(), tx, "001"))

	require.Len(t, tx.statements, 1)
	assert.Contains(t, tx.statements[0], "INSERT INTO schema_migrations")
}
