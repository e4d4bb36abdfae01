package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/entities"
	"taskly/internal/events"
	"taskly/internal/repositories"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/eventbus"
	"taskly/pkg/geo"
)

const routeDateLayout = "2006-01-02"

// EventPublisher - то, что нужно сервисам от шины событий.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type VisitServiceInterface interface {
	CheckIn(ctx context.Context, representativeID uint64, payload dto.CheckInDTO) (*dto.CheckInResponseDTO, error)
	CheckOut(ctx context.Context, representativeID uint64, payload dto.CheckOutDTO) (*dto.CheckOutResponseDTO, error)
	DailyRoute(ctx context.Context, viewerID uint64, viewerRole string, query dto.RouteQueryDTO) (*dto.DailyRouteDTO, error)
	ExportDailyRoute(ctx context.Context, route *dto.DailyRouteDTO) (*bytes.Buffer, error)
}

type VisitService struct {
	visitRepo  repositories.VisitRepositoryInterface
	clientRepo repositories.ClientRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	txManager  repositories.TxManagerInterface
	publisher  EventPublisher
	logger     *zap.Logger

	now      func() time.Time
	location *time.Location
}

func NewVisitService(
	visitRepo repositories.VisitRepositoryInterface,
	clientRepo repositories.ClientRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	txManager repositories.TxManagerInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) *VisitService {
	return &VisitService{
		visitRepo:  visitRepo,
		clientRepo: clientRepo,
		userRepo:   userRepo,
		txManager:  txManager,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		location:   time.Local,
	}
}

func (s *VisitService) CheckIn(ctx context.Context, representativeID uint64, payload dto.CheckInDTO) (*dto.CheckInResponseDTO, error) {
	if payload.ClientID == 0 || payload.Location == nil {
		return nil, apperrors.NewInvalidInputError("укажите клиента и местоположение")
	}
	if !payload.Location.Valid() {
		return nil, apperrors.NewInvalidInputError("некорректные координаты")
	}

	client, err := s.clientRepo.FindByID(ctx, payload.ClientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewHttpError(http.StatusNotFound, "Клиент не найден", err)
		}
		return nil, err
	}

	now := s.now()
	var (
		created *entities.Visit
		verdict CheckInVerdict
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var prior *PriorCheckIn
		last, err := s.visitRepo.FindLatestCheckInSince(ctx, tx, representativeID, now.Add(-constants.ImpossibleTravelWindowMin*time.Minute))
		switch {
		case err == nil:
			prior = &PriorCheckIn{Location: last.CheckInLocation, At: last.CheckInTime}
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		verdict = ValidateCheckIn(*payload.Location, client.Location(), prior)

		visit := &entities.Visit{
			ClientID:         client.ID,
			RepresentativeID: representativeID,
			Status:           constants.VisitStatusCheckedIn,
			CheckInTime:      now,
			CheckInLocation:  *payload.Location,
			Distance:         verdict.DistanceMeters,
			IsValid:          verdict.IsValid,
		}
		if payload.Photo != "" {
			visit.CheckInPhoto = null.StringFrom(payload.Photo)
		}
		if payload.Notes != "" {
			visit.Notes = null.StringFrom(payload.Notes)
		}

		created, err = s.visitRepo.Create(ctx, tx, visit)
		return err
	})
	if err != nil {
		return nil, err
	}

	if verdict.ImpossibleTravel {
		s.logger.Warn("Обнаружено невозможное перемещение",
			zap.Uint64("representativeID", representativeID), zap.Uint64("visitID", created.ID))
	}

	s.publisher.Publish(ctx, events.VisitCheckedInEvent{
		Visit:            *created,
		ClientName:       displayClientName(client),
		ImpossibleTravel: verdict.ImpossibleTravel,
	})

	return &dto.CheckInResponseDTO{
		Visit:            created,
		Distance:         verdict.DistanceMeters,
		IsValid:          verdict.IsValid,
		ImpossibleTravel: verdict.ImpossibleTravel,
		Message:          checkInMessage(verdict),
	}, nil
}

// checkInMessage: невозможное перемещение важнее предупреждения о расстоянии.
func checkInMessage(v CheckInVerdict) string {
	switch {
	case v.ImpossibleTravel:
		return "Внимание: обнаружено невозможное перемещение!"
	case !v.IsValid:
		return fmt.Sprintf("Внимание: расстояние %d м - далеко от клиента", v.DistanceMeters)
	default:
		return "Прибытие успешно отмечено"
	}
}

func displayClientName(c *entities.Client) string {
	if c.CompanyName.Valid && c.CompanyName.String != "" {
		return c.CompanyName.String
	}
	return c.Name
}

func (s *VisitService) CheckOut(ctx context.Context, representativeID uint64, payload dto.CheckOutDTO) (*dto.CheckOutResponseDTO, error) {
	if payload.VisitID == 0 {
		return nil, apperrors.NewInvalidInputError("укажите визит")
	}
	if payload.Location != nil && !payload.Location.Valid() {
		return nil, apperrors.NewInvalidInputError("некорректные координаты")
	}

	visit, err := s.visitRepo.FindByID(ctx, nil, payload.VisitID)
	if err != nil {
		return nil, err
	}
	if visit.RepresentativeID != representativeID {
		return nil, apperrors.ErrForbidden
	}
	if visit.Status == constants.VisitStatusCheckedOut {
		return nil, apperrors.NewBadRequestError("Визит уже завершен")
	}

	updated, err := s.visitRepo.CheckOut(ctx, visit.ID, s.now(), payload.Location)
	if err != nil {
		return nil, err
	}
	return &dto.CheckOutResponseDTO{Visit: updated, Message: "Уход успешно отмечен"}, nil
}

func (s *VisitService) DailyRoute(ctx context.Context, viewerID uint64, viewerRole string, query dto.RouteQueryDTO) (*dto.DailyRouteDTO, error) {
	repID := query.RepresentativeID
	if repID == 0 {
		repID = viewerID
	}
	if repID != viewerID && !constants.HasRole(viewerRole, constants.RouteViewerRoles) {
		return nil, apperrors.NewHttpError(http.StatusForbidden, "Нет прав на просмотр маршрута другого представителя", apperrors.ErrForbidden)
	}

	var day time.Time
	if query.Date == "" {
		n := s.now().In(s.location)
		day = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.location)
	} else {
		parsed, err := time.ParseInLocation(routeDateLayout, query.Date, s.location)
		if err != nil {
			return nil, apperrors.NewInvalidInputError("дата должна быть в формате ГГГГ-ММ-ДД")
		}
		day = parsed
	}

	visits, err := s.visitRepo.ListForPeriod(ctx, repID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	repName := ""
	if rep, err := s.userRepo.FindUserByID(ctx, repID); err == nil {
		repName = rep.Name
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Warn("Не удалось получить представителя для маршрута", zap.Uint64("representativeID", repID), zap.Error(err))
	}

	route := BuildRoute(visits)
	route.Representative = dto.RouteRepresentativeDTO{ID: repID, Name: repName}
	route.Date = day.Format(routeDateLayout)
	return route, nil
}

// BuildRoute собирает маршрут из визитов, упорядоченных по времени прибытия.
// Перегоны считаются в километрах от точки ухода (или прибытия) предыдущего визита.
func BuildRoute(visits []entities.Visit) *dto.DailyRouteDTO {
	route := &dto.DailyRouteDTO{Route: make([]dto.RoutePointDTO, 0, len(visits))}
	var totalKm float64

	for i := range visits {
		v := &visits[i]
		point := dto.RoutePointDTO{
			Order:            i + 1,
			VisitID:          v.ID,
			ClientID:         v.ClientID,
			ClientName:       v.ClientName,
			Status:           v.Status,
			CheckInTime:      v.CheckInTime.Format(time.RFC3339),
			CheckInLocation:  v.CheckInLocation,
			CheckOutLocation: v.CheckOutLocation,
			Distance:         v.Distance,
			IsValid:          v.IsValid,
		}
		if v.Notes.Valid {
			notes := v.Notes.String
			point.Notes = &notes
		}

		if v.IsValid {
			route.Summary.ValidVisits++
		} else {
			route.Summary.InvalidVisits++
		}

		if v.CheckOutTime.Valid {
			out := v.CheckOutTime.Time.Format(time.RFC3339)
			point.CheckOutTime = &out
			minutes := int(math.Round(v.CheckOutTime.Time.Sub(v.CheckInTime).Minutes()))
			point.DurationMinutes = &minutes
			route.Summary.TotalDurationMinutes += minutes
		}

		if i > 0 {
			prev := &visits[i-1]
			from := prev.CheckInLocation
			if prev.CheckOutLocation != nil {
				from = *prev.CheckOutLocation
			}
			km := geo.DistanceKm(from, v.CheckInLocation)
			rounded := round2(km)
			point.TravelFromPreviousKm = &rounded
			totalKm += km
		}

		route.Route = append(route.Route, point)
	}

	route.Summary.TotalVisits = len(visits)
	route.Summary.TotalDistanceKm = round2(totalKm)
	return route
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var routeHeaders = []interface{}{
	"№", "Клиент", "Статус", "Прибытие", "Уход", "Длительность (мин)",
	"Расстояние до клиента (м)", "Геозона", "Перегон (км)", "Заметки",
}

// ExportDailyRoute формирует xlsx с маршрутом и итоговой строкой.
func (s *VisitService) ExportDailyRoute(_ context.Context, route *dto.DailyRouteDTO) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Маршрут"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &routeHeaders); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "J1", style); err != nil {
		return nil, err
	}

	for i, p := range route.Route {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := routePointRow(p)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	summaryCell, err := excelize.CoordinatesToCellName(1, len(route.Route)+3)
	if err != nil {
		return nil, err
	}
	summary := []interface{}{
		"Итого", route.Representative.Name, route.Date, "", "",
		route.Summary.TotalDurationMinutes, "",
		fmt.Sprintf("%d / %d", route.Summary.ValidVisits, route.Summary.InvalidVisits),
		route.Summary.TotalDistanceKm, "",
	}
	if err := f.SetSheetRow(sheet, summaryCell, &summary); err != nil {
		return nil, err
	}

	for _, w := range []struct {
		from, to string
		width    float64
	}{{"B", "B", 30}, {"D", "E", 20}, {"J", "J", 40}} {
		if err := f.SetColWidth(sheet, w.from, w.to, w.width); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

func routePointRow(p dto.RoutePointDTO) []interface{} {
	var out, duration, travel, notes interface{} = "", "", "", ""
	if p.CheckOutTime != nil {
		out = *p.CheckOutTime
	}
	if p.DurationMinutes != nil {
		duration = *p.DurationMinutes
	}
	if p.TravelFromPreviousKm != nil {
		travel = *p.TravelFromPreviousKm
	}
	if p.Notes != nil {
		notes = *p.Notes
	}
	geofence := "в зоне"
	if !p.IsValid {
		geofence = "вне зоны"
	}
	return []interface{}{
		p.Order, p.ClientName, p.Status, p.CheckInTime, out, duration,
		p.Distance, geofence, travel, notes,
	}
}
