// Package fixture creates the demo inputs the extract commands can be tried
// against. Nothing here is used by the extraction itself.
package fixture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	devenv "labextract/dev/env"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sampleCSV = "name,age\nAlice,25\nBob,30\nCharlie,28\n"

// EnsureCSV writes the sample people file unless something already exists at
// path. It reports whether the file was created.
func EnsureCSV(path string) (bool, error) {
	path, err := devenv.ResolvePath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return false, err
	}
	err = os.WriteFile(path, []byte(sampleCSV), 0644)
	if err != nil {
		return false, err
	}
	slog.Info("created sample csv", "path", path)
	return true, nil
}

// OpenDB opens a sqlite database, creating the file when it does not exist.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	dbpath, err := devenv.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(dbpath)
	if os.IsNotExist(statErr) {
		err = os.MkdirAll(filepath.Dir(dbpath), 0755)
		if err != nil {
			return nil, err
		}
		f, err := os.Create(dbpath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type Employee struct {
	Name       string
	Department string
	Salary     float64
}

var Employees = []Employee{
	{Name: "Alice", Department: "Engineering", Salary: 75000},
	{Name: "Bob", Department: "Marketing", Salary: 65000},
	{Name: "Charlie", Department: "Engineering", Salary: 80000},
	{Name: "David", Department: "Sales", Salary: 60000},
	{Name: "Emma", Department: "Marketing", Salary: 70000},
}

const employeesSchema = `create table if not exists employees (
	id integer primary key autoincrement,
	name text,
	department text,
	salary real
)`

// EnsureEmployees creates the employees table and seeds it with the given
// rows (Employees when nil) if it is empty. It returns the number of rows
// inserted.
func EnsureEmployees(ctx context.Context, db *sql.DB, rows []Employee) (int, error) {
	if rows == nil {
		rows = Employees
	}

	_, err := db.ExecContext(ctx, employeesSchema)
	if err != nil {
		return 0, fmt.Errorf("create employees: %w", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "select count(*) from employees").Scan(&count)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		slog.InfoContext(ctx, "employees table already seeded", "rows", count)
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for _, e := range rows {
		_, err := tx.ExecContext(
			ctx,
			"insert into employees (name, department, salary) values (?, ?, ?)",
			e.Name, e.Department, e.Salary,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", e.Name, err)
		}
	}
	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "seeded employees table", "rows", len(rows))
	return len(rows), nil
}
