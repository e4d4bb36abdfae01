package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskly/internal/entities"
	apperrors "taskly/pkg/errors"
)

const (
	notificationTable  = "notifications"
	notificationFields = "id, recipient_id, type, title, message, is_read, link, metadata, created_at, updated_at"
)

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *entities.Notification) (*entities.Notification, error)
	ListForUser(ctx context.Context, userID uint64, limit, offset uint64) ([]entities.Notification, uint64, error)
	CountUnread(ctx context.Context, userID uint64) (uint64, error)
	MarkRead(ctx context.Context, id, userID uint64) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	Delete(ctx context.Context, id uint64) error
}

type notificationRepository struct {
	storage *pgxpool.Pool
}

func NewNotificationRepository(storage *pgxpool.Pool) NotificationRepositoryInterface {
	return &notificationRepository{storage: storage}
}

func (r *notificationRepository) scanRow(row pgx.Row) (*entities.Notification, error) {
	var n entities.Notification
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.IsRead,
		&n.Link, &n.Metadata, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования notifications: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *entities.Notification) (*entities.Notification, error) {
	query, args, err := psql.Insert(notificationTable).
		Columns("recipient_id", "type", "title", "message", "is_read", "link", "metadata").
		Values(n.RecipientID, n.Type, n.Title, n.Message, false, n.Link, n.Metadata).
		Suffix("RETURNING " + notificationFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для создания уведомления: %w", err)
	}
	return r.scanRow(r.storage.QueryRow(ctx, query, args...))
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint64, limit, offset uint64) ([]entities.Notification, uint64, error) {
	var total uint64
	countQuery, countArgs, err := psql.Select("COUNT(*)").From(notificationTable).Where(sq.Eq{"recipient_id": userID}).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL для подсчета уведомлений: %w", err)
	}
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета уведомлений: %w", err)
	}
	if total == 0 {
		return []entities.Notification{}, 0, nil
	}

	query, args, err := psql.Select(notificationFields).
		From(notificationTable).
		Where(sq.Eq{"recipient_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки SQL для списка уведомлений: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения уведомлений: %w", err)
	}
	defer rows.Close()

	list := make([]entities.Notification, 0, limit)
	for rows.Next() {
		n, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *n)
	}
	return list, total, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint64) (uint64, error) {
	query, args, err := psql.Select("COUNT(*)").
		From(notificationTable).
		Where(sq.Eq{"recipient_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки SQL для CountUnread: %w", err)
	}
	var count uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных: %w", err)
	}
	return count, nil
}

func markReadQuery(id, userID uint64) sq.UpdateBuilder {
	return psql.Update(notificationTable).
		Set("is_read", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "recipient_id": userID})
}

// MarkRead отмечает уведомление прочитанным. Чужое уведомление неотличимо от несуществующего.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint64) error {
	query, args, err := markReadQuery(id, userID).ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки SQL для MarkRead: %w", err)
	}
	res, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления уведомления: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	query, args, err := psql.Update(notificationTable).
		Set("is_read", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"recipient_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки SQL для MarkAllRead: %w", err)
	}
	res, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления уведомлений: %w", err)
	}
	return res.RowsAffected(), nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uint64) error {
	res, err := r.storage.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления уведомления: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
