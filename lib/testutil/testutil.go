package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"labextract/lib/telemetry"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "modernc.org/sqlite"
)

type DBParams struct {
	Name string
	// executed once the database is created, may be empty
	Schema string
	// statements executed after the schema
	Seed []string
}

type DBResult struct {
	DB *sql.DB
	// path of the sqlite file, so that sources can open it on their own
	Path string
}

// SetupDB creates a sqlite file in a temporary directory and applies the
// schema and seed statements to it.
func SetupDB(t testing.TB, params DBParams) (DBResult, func()) {
	cleanupTelemetry := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	err = db.Ping()
	if err != nil {
		t.Fatal(err)
	}

	if params.Schema != "" {
		_, err = db.Exec(params.Schema)
		if err != nil {
			t.Fatal(err)
		}
	}
	for _, stmt := range params.Seed {
		_, err = db.Exec(stmt)
		if err != nil {
			t.Fatal(err)
		}
	}

	return DBResult{DB: db, Path: dbpath}, func() {
		db.Close()
		cleanupTelemetry()
	}
}

// ContainersEnabled reports whether tests that start docker containers
// should run.
func ContainersEnabled() bool {
	return os.Getenv("LABEXTRACT_CONTAINERS") == "1"
}

// StartPostgres runs a throwaway postgres container and returns its dsn.
func StartPostgres(t testing.TB) (string, func()) {
	if !ContainersEnabled() {
		t.Skip("set LABEXTRACT_CONTAINERS=1 to run container tests")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "lab",
					"POSTGRES_PASSWORD": "lab",
					"POSTGRES_DB":       "lab",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}

	dsn := fmt.Sprintf("postgres://lab:lab@%s:%s/lab?sslmode=disable", host, port.Port())
	return dsn, func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}
