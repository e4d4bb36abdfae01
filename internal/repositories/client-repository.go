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
	clientTable  = "clients"
	clientFields = "id, name, company_name, lng, lat, created_at, updated_at"
)

type ClientRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Client, error)
}

type clientRepository struct{ storage *pgxpool.Pool }

func NewClientRepository(storage *pgxpool.Pool) ClientRepositoryInterface {
	return &clientRepository{storage: storage}
}

func (r *clientRepository) FindByID(ctx context.Context, id uint64) (*entities.Client, error) {
	query, args, err := psql.Select(clientFields).From(clientTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для clients: %w", err)
	}

	var c entities.Client
	err = r.storage.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Name, &c.CompanyName, &c.Lng, &c.Lat, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования clients: %w", err)
	}
	return &c, nil
}
