// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
)

// PostgreSQL implements Store over database/sql with a single blob
// table. The version column carries the optimistic-concurrency token.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_blobs (
            key VARCHAR(255) PRIMARY KEY,
            value BYTEA NOT NULL,
            version BIGINT NOT NULL DEFAULT 1,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

// IsAvailable reports whether the backing database answers a ping.
func (p *PostgreSQL) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.db.PingContext(ctx) == nil
}

// GetData 读取数据. Absent keys yield an empty slice, not an error.
func (p *PostgreSQL) GetData(key string) ([]byte, error) {
	value, _, err := p.GetVersioned(key)
	return value, err
}

// GetVersioned reads a blob together with its version token.
func (p *PostgreSQL) GetVersioned(key string) ([]byte, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var value []byte
	var version int64
	query := `SELECT value, version FROM game_blobs WHERE key = $1`
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			return []byte{}, 0, nil
		}
		return nil, 0, err
	}
	return value, version, nil
}

// SetData 保存数据, last write wins.
func (p *PostgreSQL) SetData(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO game_blobs (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key)
        DO UPDATE SET value = $2, version = game_blobs.version + 1, updated_at = CURRENT_TIMESTAMP
    `

	_, err := p.db.ExecContext(ctx, query, key, value)
	return err
}

// SetVersioned writes a blob only if its current version still matches
// expect, returning ErrVersionConflict otherwise.
func (p *PostgreSQL) SetVersioned(key string, value []byte, expect int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if expect == 0 {
		query := `
            INSERT INTO game_blobs (key, value)
            VALUES ($1, $2)
            ON CONFLICT (key) DO NOTHING
        `
		result, err := p.db.ExecContext(ctx, query, key, value)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	query := `
        UPDATE game_blobs
        SET value = $2, version = version + 1, updated_at = CURRENT_TIMESTAMP
        WHERE key = $1 AND version = $3
    `
	result, err := p.db.ExecContext(ctx, query, key, value, expect)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
