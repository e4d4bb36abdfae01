package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskly/internal/entities"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/geo"
)

const (
	visitTable  = "visits"
	visitFields = "v.id, v.client_id, v.representative_id, v.status, v.check_in_time, v.check_in_lng, v.check_in_lat, " +
		"v.check_in_photo, v.distance, v.is_valid, v.check_out_time, v.check_out_lng, v.check_out_lat, v.notes, " +
		"v.created_at, v.updated_at, COALESCE(NULLIF(c.company_name, ''), c.name, '')"
	visitFrom = "visits v LEFT JOIN clients c ON c.id = v.client_id"
)

type VisitRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, v *entities.Visit) (*entities.Visit, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Visit, error)
	// FindLatestCheckInSince - последний визит представителя с check_in_time > since.
	FindLatestCheckInSince(ctx context.Context, tx pgx.Tx, representativeID uint64, since time.Time) (*entities.Visit, error)
	CheckOut(ctx context.Context, id uint64, at time.Time, location *geo.Point) (*entities.Visit, error)
	ListForPeriod(ctx context.Context, representativeID uint64, from, to time.Time) ([]entities.Visit, error)
}

type visitRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewVisitRepository(storage *pgxpool.Pool, logger *zap.Logger) VisitRepositoryInterface {
	return &visitRepository{storage: storage, logger: logger}
}

func (r *visitRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *visitRepository) scanRow(row pgx.Row) (*entities.Visit, error) {
	var v entities.Visit
	var outLng, outLat null.Float64
	err := row.Scan(
		&v.ID, &v.ClientID, &v.RepresentativeID, &v.Status, &v.CheckInTime,
		&v.CheckInLocation.Lng, &v.CheckInLocation.Lat,
		&v.CheckInPhoto, &v.Distance, &v.IsValid, &v.CheckOutTime,
		&outLng, &outLat, &v.Notes, &v.CreatedAt, &v.UpdatedAt, &v.ClientName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования visits: %w", err)
	}
	if outLng.Valid && outLat.Valid {
		p := geo.NewPoint(outLng.Float64, outLat.Float64)
		v.CheckOutLocation = &p
	}
	return &v, nil
}

func (r *visitRepository) findOne(ctx context.Context, q Querier, builder sq.SelectBuilder) (*entities.Visit, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для visits: %w", err)
	}
	return r.scanRow(q.QueryRow(ctx, query, args...))
}

func (r *visitRepository) Create(ctx context.Context, tx pgx.Tx, v *entities.Visit) (*entities.Visit, error) {
	query, args, err := psql.Insert(visitTable).
		Columns("client_id", "representative_id", "status", "check_in_time", "check_in_lng", "check_in_lat",
			"check_in_photo", "distance", "is_valid", "notes").
		Values(v.ClientID, v.RepresentativeID, v.Status, v.CheckInTime, v.CheckInLocation.Lng, v.CheckInLocation.Lat,
			v.CheckInPhoto, v.Distance, v.IsValid, v.Notes).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для создания визита: %w", err)
	}

	q := r.getQuerier(tx)
	var id uint64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("ошибка создания визита: %w", err)
	}
	return r.FindByID(ctx, tx, id)
}

func (r *visitRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Visit, error) {
	return r.findOne(ctx, r.getQuerier(tx), psql.Select(visitFields).From(visitFrom).Where(sq.Eq{"v.id": id}))
}

// latestCheckInQuery - строго позже since, самый свежий первым.
func latestCheckInQuery(representativeID uint64, since time.Time) sq.SelectBuilder {
	return psql.Select(visitFields).
		From(visitFrom).
		Where(sq.Eq{"v.representative_id": representativeID}).
		Where(sq.Gt{"v.check_in_time": since}).
		OrderBy("v.check_in_time DESC").
		Limit(1)
}

func (r *visitRepository) FindLatestCheckInSince(ctx context.Context, tx pgx.Tx, representativeID uint64, since time.Time) (*entities.Visit, error) {
	return r.findOne(ctx, r.getQuerier(tx), latestCheckInQuery(representativeID, since))
}

func (r *visitRepository) CheckOut(ctx context.Context, id uint64, at time.Time, location *geo.Point) (*entities.Visit, error) {
	builder := psql.Update(visitTable).
		Set("status", constants.VisitStatusCheckedOut).
		Set("check_out_time", at).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})
	if location != nil {
		builder = builder.Set("check_out_lng", location.Lng).Set("check_out_lat", location.Lat)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для CheckOut: %w", err)
	}
	res, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления визита: %w", err)
	}
	if res.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindByID(ctx, nil, id)
}

// ListForPeriod возвращает визиты представителя в полуинтервале [from, to) по возрастанию check_in_time.
func (r *visitRepository) ListForPeriod(ctx context.Context, representativeID uint64, from, to time.Time) ([]entities.Visit, error) {
	query, args, err := psql.Select(visitFields).
		From(visitFrom).
		Where(sq.Eq{"v.representative_id": representativeID}).
		Where(sq.GtOrEq{"v.check_in_time": from}).
		Where(sq.Lt{"v.check_in_time": to}).
		OrderBy("v.check_in_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для ListForPeriod: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения визитов: %w", err)
	}
	defer rows.Close()

	visits := make([]entities.Visit, 0)
	for rows.Next() {
		v, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}
