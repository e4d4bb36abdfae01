// pkg/constants/constants.go
package constants

//============== РОЛИ ==============

const (
	RoleSuperAdmin         = "super-admin"
	RoleSupervisor         = "supervisor"
	RoleAuditor            = "auditor"
	RoleSalesRep           = "sales-rep"
	RoleProgrammer         = "programmer"
	RoleDesigner           = "designer"
	RoleSocialMediaManager = "social-media-manager"
)

// AlertRecipientRoles - кто получает оповещения о подозрительных визитах.
var AlertRecipientRoles = []string{RoleSuperAdmin, RoleSupervisor}

// RouteViewerRoles - кому разрешено смотреть маршруты других представителей.
var RouteViewerRoles = []string{RoleSuperAdmin, RoleSupervisor, RoleAuditor}

func HasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

//============== ТИПЫ УВЕДОМЛЕНИЙ ==============

type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "task-assigned"
	NotificationTaskUpdated   NotificationType = "task-updated"
	NotificationComment       NotificationType = "comment"
	NotificationSecurityAlert NotificationType = "security-alert"
	NotificationVisit         NotificationType = "visit"
	NotificationSystem        NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskUpdated, NotificationComment,
		NotificationSecurityAlert, NotificationVisit, NotificationSystem:
		return true
	}
	return false
}

func (t NotificationType) String() string {
	return string(t)
}

//============== ВИЗИТЫ ==============

const (
	VisitStatusCheckedIn  = "checked-in"
	VisitStatusCheckedOut = "checked-out"
)

// Пороговые значения геозоны.
const (
	CheckInRadiusMeters        = 500
	ImpossibleTravelWindowMin  = 5
	ImpossibleTravelThresholdM = 50000

	// Длина превью сообщения в массовых уведомлениях (в символах).
	NotificationPreviewRunes = 100
)

//============== КЛЮЧИ КЕША ==============

const (
	// system_settings целиком, JSON.
	CacheKeySystemSettings = "system_settings"

	// Маркер обработанного update_id вебхука Telegram.
	// Формат: telegram_update:<update_id> -> "1"
	CacheKeyTelegramUpdate = "telegram_update:%d"
)
