// Package migrations хранит SQL-схему и применяет ее через goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

const dir = "sql"

func run(pool *pgxpool.Pool, fn func(db *sql.DB) error) error {
	goose.SetBaseFS(sqlFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return fn(db)
}

// Up применяет все новые миграции.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	return run(pool, func(db *sql.DB) error { return goose.UpContext(ctx, db, dir) })
}

// Down откатывает последнюю миграцию.
func Down(ctx context.Context, pool *pgxpool.Pool) error {
	return run(pool, func(db *sql.DB) error { return goose.DownContext(ctx, db, dir) })
}

func Status(ctx context.Context, pool *pgxpool.Pool) error {
	return run(pool, func(db *sql.DB) error { return goose.StatusContext(ctx, db, dir) })
}
