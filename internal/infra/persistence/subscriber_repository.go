package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	consts "github.com/server24/provisiond/internal/constants"
	"github.com/server24/provisiond/internal/domain"
	app_errors "github.com/server24/provisiond/internal/errors"
)

const queryTimeout = 3 * time.Second

// SubscriberRepository is the pgx-backed domain.SubscriberRepository.
type SubscriberRepository struct {
	*PostgresBase
}

func NewSubscriberRepository(db *pgxpool.Pool, logger *slog.Logger) *SubscriberRepository {
	return &SubscriberRepository{PostgresBase: NewPostgresBase(db, logger)}
}

func (r *SubscriberRepository) GetByID(ctx context.Context, id int64) (*domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.DB.QueryRow(ctx, consts.Queries[consts.StmtGetSubscriberByID], id)
	sub, err := ScanSubscriberRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to get subscriber %d: %w", id, err)
	}
	return sub, nil
}

func (r *SubscriberRepository) GetByExternalID(ctx context.Context, externalID int64) (*domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.DB.QueryRow(ctx, consts.Queries[consts.StmtGetSubscriberByExternal], externalID)
	sub, err := ScanSubscriberRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to get subscriber by external id %d: %w", externalID, err)
	}
	return sub, nil
}

func (r *SubscriberRepository) Upsert(ctx context.Context, sub *domain.Subscriber) (*domain.Subscriber, error) {
	if sub == nil {
		return nil, errors.New("subscriber cannot be nil")
	}
	if sub.ExternalID == 0 {
		return nil, fmt.Errorf("%w: external id is required", app_errors.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.DB.QueryRow(ctx, consts.Queries[consts.StmtUpsertSubscriber],
		sub.ExternalID, sub.Username, sub.FullName)
	stored, err := ScanSubscriberRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscriber %d: %w", sub.ExternalID, err)
	}
	return stored, nil
}

func (r *SubscriberRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := r.DB.QueryRow(ctx, consts.Queries[consts.StmtAdjustBalance], id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the subscriber is missing or the guard on a negative
			// result refused the update; disambiguate for the caller.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, app_errors.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("failed to adjust balance for subscriber %d: %w", id, err)
	}
	return balance, nil
}

func (r *SubscriberRepository) List(ctx context.Context) ([]*domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, consts.Queries[consts.StmtListSubscribers])
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscriber
	for rows.Next() {
		sub, err := ScanSubscriberRow(rows)
		if err != nil {
			r.logger.Error("failed to scan subscriber row", "error", err)
			continue
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over subscribers: %w", err)
	}
	return subs, nil
}
