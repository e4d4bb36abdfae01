package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskly/internal/entities"
	apperrors "taskly/pkg/errors"
)

const (
	userTable  = "users"
	userFields = "id, name, email, role, is_active, telegram_chat_id, created_at, updated_at"
)

type UserRepositoryInterface interface {
	FindUserByID(ctx context.Context, id uint64) (*entities.User, error)
	FindUsersByRoles(ctx context.Context, roles []string) ([]entities.User, error)
	// UpdateTelegramChatID записывает chat id; nil очищает привязку.
	UpdateTelegramChatID(ctx context.Context, userID uint64, chatID *int64) error
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.IsActive,
		&user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования users: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id uint64) (*entities.User, error) {
	query, args, err := psql.Select(userFields).From(userTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindUserByID: %w", err)
	}
	return scanUser(r.storage.QueryRow(ctx, query, args...))
}

func (r *UserRepository) FindUsersByRoles(ctx context.Context, roles []string) ([]entities.User, error) {
	if len(roles) == 0 {
		return []entities.User{}, nil
	}
	query, args, err := psql.Select(userFields).
		From(userTable).
		Where(sq.Eq{"role": roles, "is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindUsersByRoles: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей по ролям: %w", err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateTelegramChatID(ctx context.Context, userID uint64, chatID *int64) error {
	query, args, err := psql.Update(userTable).
		Set("telegram_chat_id", chatID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки SQL для UpdateTelegramChatID: %w", err)
	}

	res, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления telegram_chat_id: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	r.logger.Debug("telegram_chat_id обновлен", zap.Uint64("userID", userID), zap.Bool("linked", chatID != nil))
	return nil
}
