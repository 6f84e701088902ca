package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine"
	"github.com/AntonStoeckl/asyncsql-go/testutil/config"
)

// Adapter type constants, selected with the ADAPTER_TYPE environment variable.
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper abstracts over the toolkit pool an Engine was built from.
type Wrapper interface {
	GetEngine() *engine.Engine
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
	e    *engine.Engine
}

func (w *PGXPoolWrapper) GetEngine() *engine.Engine {
	return w.e
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
	e  *engine.Engine
}

func (w *SQLDBWrapper) GetEngine() *engine.Engine {
	return w.e
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
	e  *engine.Engine
}

func (w *SQLXWrapper) GetEngine() *engine.Engine {
	return w.e
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// AdapterTypeFromEnv returns the normalized ADAPTER_TYPE, defaulting to pgx.pool.
func AdapterTypeFromEnv() string {
	adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE"))
	if adapterType == "" {
		return typePGXPool
	}

	return adapterType
}

// CreateWrapperWithTestConfig creates the wrapper selected by ADAPTER_TYPE.
// The test is skipped when the test database is unreachable.
func CreateWrapperWithTestConfig(t testing.TB, options ...engine.Option) Wrapper {
	t.Helper()

	ctx := context.Background()

	switch adapterType := AdapterTypeFromEnv(); adapterType {
	case typePGXPool:
		pool, err := config.PostgresPGXPoolTest(ctx)
		skipIfUnreachable(t, err)

		e, err := engine.NewEngineFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating engine")

		return &PGXPoolWrapper{pool: pool, e: e}

	case typeSQLDB:
		db, err := config.PostgresSQLDBTest(ctx)
		skipIfUnreachable(t, err)

		e, err := engine.NewEngineFromSQLDB(db, options...)
		require.NoError(t, err, "error creating engine")

		return &SQLDBWrapper{db: db, e: e}

	case typeSQLXDB:
		db, err := config.PostgresSQLXTest(ctx)
		skipIfUnreachable(t, err)

		e, err := engine.NewEngineFromSQLX(db, options...)
		require.NoError(t, err, "error creating engine")

		return &SQLXWrapper{db: db, e: e}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}
}

// TryCreateEngine builds an engine for the selected adapter and returns the option error, if any.
func TryCreateEngine(t testing.TB, options ...engine.Option) error {
	t.Helper()

	ctx := context.Background()

	switch adapterType := AdapterTypeFromEnv(); adapterType {
	case typePGXPool:
		pool, err := config.PostgresPGXPoolTest(ctx)
		skipIfUnreachable(t, err)
		defer pool.Close()

		_, err = engine.NewEngineFromPGXPool(pool, options...)
		return err

	case typeSQLDB:
		db, err := config.PostgresSQLDBTest(ctx)
		skipIfUnreachable(t, err)
		defer func() { _ = db.Close() }()

		_, err = engine.NewEngineFromSQLDB(db, options...)
		return err

	case typeSQLXDB:
		db, err := config.PostgresSQLXTest(ctx)
		skipIfUnreachable(t, err)
		defer func() { _ = db.Close() }()

		_, err = engine.NewEngineFromSQLX(db, options...)
		return err

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}
}

// CleanUp drops the given tables.
func CleanUp(t testing.TB, wrapper Wrapper, tableNames ...string) {
	t.Helper()

	ctx := context.Background()

	for _, tableName := range tableNames {
		result, err := wrapper.GetEngine().Execute(ctx, asyncsql.Text(`DROP TABLE IF EXISTS "`+tableName+`"`))
		require.NoError(t, err, "error dropping table %s", tableName)
		require.NoError(t, result.Close(ctx))
	}
}

func skipIfUnreachable(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Skipf("postgres test database unreachable (%s): %v", config.PostgresTestDSN(), err)
	}
}
