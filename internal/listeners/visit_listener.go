package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/events"
	"taskly/internal/repositories"
	"taskly/internal/services"
	"taskly/pkg/constants"
	"taskly/pkg/eventbus"
)

// VisitListener оповещает руководителей о подозрительных check-in.
type VisitListener struct {
	notificationService services.NotificationServiceInterface
	userRepo            repositories.UserRepositoryInterface
	logger              *zap.Logger
}

func NewVisitListener(
	notificationService services.NotificationServiceInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) *VisitListener {
	return &VisitListener{
		notificationService: notificationService,
		userRepo:            userRepo,
		logger:              logger,
	}
}

func (l *VisitListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.VisitCheckedInEventName, l.handleVisitCheckedIn)
	l.logger.Info("VisitListener подписан на событие", zap.String("event", events.VisitCheckedInEventName))
}

func (l *VisitListener) handleVisitCheckedIn(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.VisitCheckedInEvent)
	if !ok {
		return nil
	}
	if e.Visit.IsValid && !e.ImpossibleTravel {
		return nil
	}

	tpl := dto.NotificationTemplate{
		Link: fmt.Sprintf("/visits/%d", e.Visit.ID),
		Metadata: map[string]interface{}{
			"visitId":          e.Visit.ID,
			"representativeId": e.Visit.RepresentativeID,
			"distance":         e.Visit.Distance,
		},
	}
	if e.ImpossibleTravel {
		tpl.Type = constants.NotificationSecurityAlert
		tpl.Title = "Невозможное перемещение"
		tpl.Message = fmt.Sprintf("Представитель #%d отметился у клиента «%s» слишком далеко от предыдущего визита", e.Visit.RepresentativeID, e.ClientName)
	} else {
		tpl.Type = constants.NotificationVisit
		tpl.Title = "Визит вне геозоны"
		tpl.Message = fmt.Sprintf("Представитель #%d отметился в %d м от клиента «%s»", e.Visit.RepresentativeID, e.Visit.Distance, e.ClientName)
	}

	admins, err := l.userRepo.FindUsersByRoles(ctx, constants.AlertRecipientRoles)
	if err != nil {
		return fmt.Errorf("не удалось получить получателей оповещения: %w", err)
	}
	ids := make([]uint64, 0, len(admins))
	for _, u := range admins {
		ids = append(ids, u.ID)
	}

	sent, err := l.notificationService.NotifyMany(ctx, ids, e.Visit.RepresentativeID, tpl)
	if err != nil {
		return err
	}
	l.logger.Info("Оповещение о визите отправлено",
		zap.Uint64("visitID", e.Visit.ID),
		zap.String("type", tpl.Type.String()),
		zap.Int("recipients", sent))
	return nil
}
