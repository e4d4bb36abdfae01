package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskly/internal/entities"
)

const (
	pushSubscriptionTable  = "push_subscriptions"
	pushSubscriptionFields = "id, user_id, endpoint, subscription, created_at, updated_at"
)

type PushSubscriptionRepositoryInterface interface {
	// Upsert сохраняет подписку; повторная подписка с тем же endpoint обновляет ключи.
	Upsert(ctx context.Context, userID uint64, endpoint string, subscription json.RawMessage) (*entities.PushSubscription, error)
	ListByUser(ctx context.Context, userID uint64, limit uint64) ([]entities.PushSubscription, error)
	DeleteByID(ctx context.Context, id uint64) error
	// DeleteByEndpoint не считает ошибкой отсутствие подписки.
	DeleteByEndpoint(ctx context.Context, userID uint64, endpoint string) error
}

type pushSubscriptionRepository struct {
	storage *pgxpool.Pool
}

func NewPushSubscriptionRepository(storage *pgxpool.Pool) PushSubscriptionRepositoryInterface {
	return &pushSubscriptionRepository{storage: storage}
}

func upsertSubscriptionQuery(userID uint64, endpoint string, subscription json.RawMessage) sq.InsertBuilder {
	return psql.Insert(pushSubscriptionTable).
		Columns("user_id", "endpoint", "subscription").
		Values(userID, endpoint, string(subscription)).
		Suffix("ON CONFLICT (user_id, endpoint) DO UPDATE SET subscription = EXCLUDED.subscription, updated_at = NOW() RETURNING " + pushSubscriptionFields)
}

func (r *pushSubscriptionRepository) Upsert(ctx context.Context, userID uint64, endpoint string, subscription json.RawMessage) (*entities.PushSubscription, error) {
	query, args, err := upsertSubscriptionQuery(userID, endpoint, subscription).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для подписки: %w", err)
	}

	var s entities.PushSubscription
	err = r.storage.QueryRow(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.Endpoint, &s.Subscription, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения подписки: %w", err)
	}
	return &s, nil
}

func (r *pushSubscriptionRepository) ListByUser(ctx context.Context, userID uint64, limit uint64) ([]entities.PushSubscription, error) {
	query, args, err := psql.Select(pushSubscriptionFields).
		From(pushSubscriptionTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для списка подписок: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения подписок: %w", err)
	}
	defer rows.Close()

	subs := make([]entities.PushSubscription, 0)
	for rows.Next() {
		var s entities.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.Subscription, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования push_subscriptions: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pushSubscriptionRepository) DeleteByID(ctx context.Context, id uint64) error {
	_, err := r.storage.Exec(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления подписки: %w", err)
	}
	return nil
}

func (r *pushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, userID uint64, endpoint string) error {
	_, err := r.storage.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return fmt.Errorf("ошибка удаления подписки: %w", err)
	}
	return nil
}
