package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/postgres/migrations"
	"github.com/climbing-tracker/internal/store"
)

// DB is the subset of pgx used by the repository. *pgxpool.Pool, pgx.Tx and pgxmock pools
// all satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository provides PostgreSQL-based record storage
type Repository struct {
	db           DB
	pool         *pgxpool.Pool
	migrationURL string
	logger       *slog.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository
func NewRepository(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		db:           pool,
		pool:         pool,
		migrationURL: cfg.MigrationURL(),
		logger:       logger,
	}, nil
}

// NewWithDB wraps an existing connection, pool or mock
func NewWithDB(db DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping checks the connection
func (r *Repository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Ping(ctx)
}

// RunMigrations applies the embedded schema migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	if err := migrations.MigrateUp(r.migrationURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	r.logger.InfoContext(ctx, "database migrations completed")
	return nil
}

// CheckMigrations returns an error unless the schema is at the embedded version
func (r *Repository) CheckMigrations() error {
	if err := migrations.CheckStatus(r.migrationURL); err != nil {
		return fmt.Errorf("checking migrations: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction
func (r *Repository) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&Repository{db: tx, logger: r.logger}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.WarnContext(ctx, "rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UpsertUser records a user the identity provider has vouched for
func (r *Repository) UpsertUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (id, username, display_name)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (id)
		DO UPDATE SET username = EXCLUDED.username,
			display_name = COALESCE(EXCLUDED.display_name, users.display_name)
	`
	if _, err := r.db.Exec(ctx, query, user.ID, user.Username, user.DisplayName); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, username, COALESCE(display_name, '') FROM users WHERE id = $1`
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// ListUsers retrieves every user
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, COALESCE(display_name, '') FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
