package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	consts "github.com/server24/provisiond/internal/constants"
	"github.com/server24/provisiond/internal/domain"
	app_errors "github.com/server24/provisiond/internal/errors"
)

const defaultCredentialsCapacity = 100

// uniqueViolation is the Postgres error code raised when the unique
// index on credentials.port (or .id) rejects an insert.
const uniqueViolation = "23505"

// CredentialRepository is the pgx-backed domain.CredentialRepository.
type CredentialRepository struct {
	*PostgresBase
}

func NewCredentialRepository(db *pgxpool.Pool, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{PostgresBase: NewPostgresBase(db, logger)}
}

func (r *CredentialRepository) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.DB.QueryRow(ctx, consts.Queries[consts.StmtGetCredential], id.String())
	cred, err := ScanCredentialRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential %s: %w", id.String(), err)
	}
	return cred, nil
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	if cred == nil {
		return errors.New("credential cannot be nil")
	}
	if cred.ID.IsZero() {
		return fmt.Errorf("%w: credential id is required", app_errors.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.DB.Exec(ctx, consts.Queries[consts.StmtCreateCredential],
		cred.ID.String(), cred.SubscriberID, cred.Port, cred.Flow,
		cred.QuotaBytes, cred.UsedBytes, cred.ExpiresAt, cred.Active, cred.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: port %d", app_errors.ErrPortInUse, cred.Port)
		}
		return fmt.Errorf("failed to create credential %s: %w", cred.ID.String(), err)
	}
	return nil
}

func (r *CredentialRepository) ListAll(ctx context.Context) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, consts.Queries[consts.StmtListCredentials])
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *CredentialRepository) ListBySubscriber(ctx context.Context, subscriberID int64) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, consts.Queries[consts.StmtListCredentialsBySub], subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials for subscriber %d: %w", subscriberID, err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *CredentialRepository) ListPorts(ctx context.Context) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, consts.Queries[consts.StmtListCredentialPorts])
	if err != nil {
		return nil, fmt.Errorf("failed to query credential ports: %w", err)
	}
	defer rows.Close()

	var ports []int
	for rows.Next() {
		var port int
		if err := rows.Scan(&port); err != nil {
			return nil, fmt.Errorf("failed to scan credential port: %w", err)
		}
		ports = append(ports, port)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over credential ports: %w", err)
	}
	return ports, nil
}

func (r *CredentialRepository) UpdateExpiry(ctx context.Context, id domain.CredentialID, expiresAt time.Time) error {
	return r.update(ctx, consts.Queries[consts.StmtUpdateCredentialExpiry], id, expiresAt)
}

func (r *CredentialRepository) UpdateUsage(ctx context.Context, id domain.CredentialID, usedBytes int64) error {
	return r.update(ctx, consts.Queries[consts.StmtUpdateCredentialUsage], id, usedBytes)
}

func (r *CredentialRepository) Delete(ctx context.Context, id domain.CredentialID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.DB.Exec(ctx, consts.Queries[consts.StmtDeleteCredential], id.String())
	if err != nil {
		return fmt.Errorf("failed to delete credential %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return app_errors.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) update(ctx context.Context, query string, id domain.CredentialID, arg any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.DB.Exec(ctx, query, id.String(), arg)
	if err != nil {
		return fmt.Errorf("failed to update credential %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return app_errors.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) collect(rows pgx.Rows) ([]*domain.Credential, error) {
	creds := make([]*domain.Credential, 0, defaultCredentialsCapacity)
	for rows.Next() {
		cred, err := ScanCredentialRow(rows)
		if err != nil {
			r.logger.Error("failed to scan credential row", "error", err)
			continue
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over credentials: %w", err)
	}
	return creds, nil
}
