package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"taskly/internal/controllers"
	"taskly/internal/dto"
	"taskly/internal/entities"
	"taskly/internal/services"
	"taskly/pkg/constants"
	"taskly/pkg/service"
	"taskly/pkg/telegram"
	"taskly/pkg/utils"
	appwebsocket "taskly/pkg/websocket"
)

type stubNotifications struct {
	services.NotificationServiceInterface
	deleted []uint64
}

func (s *stubNotifications) CountUnread(ctx context.Context, userID uint64) (uint64, error) {
	return 3, nil
}

func (s *stubNotifications) Delete(ctx context.Context, id uint64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubSettings struct {
	services.SettingsServiceInterface
}

func (stubSettings) Public(ctx context.Context) (*dto.SettingsResponseDTO, error) {
	return &dto.SettingsResponseDTO{AppName: "Taskly", TelegramEnabled: true}, nil
}

type stubTelegramLink struct {
	services.TelegramLinkServiceInterface
	mu      sync.Mutex
	updates []telegram.Update
}

func (s *stubTelegramLink) HandleWebhookUpdate(ctx context.Context, update telegram.Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	return true, nil
}

type stubVisits struct {
	services.VisitServiceInterface
	checkIns int
}

func (s *stubVisits) CheckIn(ctx context.Context, representativeID uint64, payload dto.CheckInDTO) (*dto.CheckInResponseDTO, error) {
	s.checkIns++
	return &dto.CheckInResponseDTO{Visit: &entities.Visit{ID: 1}, IsValid: true, Message: "Прибытие успешно отмечено"}, nil
}

type RouterTestSuite struct {
	suite.Suite
	Echo     *echo.Echo
	JWT      service.JWTService
	Hub      *appwebsocket.Hub
	Notify   *stubNotifications
	Telegram *stubTelegramLink
	Visits   *stubVisits
}

func (s *RouterTestSuite) SetupTest() {
	e := echo.New()
	e.Validator = utils.NewCustomValidator()

	s.JWT = service.NewJWTService("router-test-secret", time.Hour, 24*time.Hour, zap.NewNop())
	s.Hub = appwebsocket.NewHub(zap.NewNop())
	s.Notify = &stubNotifications{}
	s.Telegram = &stubTelegramLink{}
	s.Visits = &stubVisits{}

	InitRouter(e, &Runtime{
		Settings:      stubSettings{},
		Notifications: s.Notify,
		TelegramLink:  s.Telegram,
		Visits:        s.Visits,
		Hub:           s.Hub,
		JWT:           s.JWT,
		Deduplicator:  controllers.NewRequestDeduplicator(),
	}, zap.NewNop())
	s.Echo = e
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) token(userID uint64, role string) string {
	access, _, err := s.JWT.GenerateTokens(userID, role)
	s.Require().NoError(err)
	return access
}

func (s *RouterTestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, utils.HttpResponse) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	var resp utils.HttpResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func (s *RouterTestSuite) TestAuthRequired() {
	rec, resp := s.do(http.MethodGet, "/api/notifications/unread-count", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(resp.Status)

	_, refresh, err := s.JWT.GenerateTokens(7, constants.RoleSalesRep)
	s.Require().NoError(err)
	rec, _ = s.do(http.MethodGet, "/api/notifications/unread-count", refresh, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, resp = s.do(http.MethodGet, "/api/notifications/unread-count", s.token(7, constants.RoleSalesRep), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.True(resp.Status)
	s.Equal(map[string]interface{}{"count": float64(3)}, resp.Body)
}

func (s *RouterTestSuite) TestRoleGuards() {
	rec, _ := s.do(http.MethodDelete, "/api/notifications/5", s.token(7, constants.RoleSalesRep), nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Empty(s.Notify.deleted)

	rec, _ = s.do(http.MethodDelete, "/api/notifications/5", s.token(1, constants.RoleSuperAdmin), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]uint64{5}, s.Notify.deleted)

	rec, _ = s.do(http.MethodDelete, "/api/notifications/abc", s.token(1, constants.RoleSuperAdmin), nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/settings", s.token(2, constants.RoleSupervisor), nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, resp := s.do(http.MethodGet, "/api/settings", s.token(1, constants.RoleSuperAdmin), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Taskly", resp.Body.(map[string]interface{})["appName"])
}

func (s *RouterTestSuite) TestTelegramWebhookIsPublic() {
	update := telegram.Update{UpdateID: 11, Message: &telegram.Message{Chat: telegram.Chat{ID: 5}, Text: "/start"}}

	rec, _ := s.do(http.MethodPost, "/api/webhooks/telegram", "", update)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().Len(s.Telegram.updates, 1)
	s.Equal(int64(11), s.Telegram.updates[0].UpdateID)
}

func (s *RouterTestSuite) TestCheckInValidationAndDedup() {
	token := s.token(7, constants.RoleSalesRep)

	rec, resp := s.do(http.MethodPost, "/api/visits/check-in", token, map[string]interface{}{})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(resp.Status)
	s.Zero(s.Visits.checkIns)

	body := map[string]interface{}{"clientId": 1, "location": []float64{69.24, 41.31}}
	rec, resp = s.do(http.MethodPost, "/api/visits/check-in", token, body)
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("Прибытие успешно отмечено", resp.Message)

	rec, _ = s.do(http.MethodPost, "/api/visits/check-in", token, body)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal(1, s.Visits.checkIns)
}

func (s *RouterTestSuite) TestPresenceOnline() {
	client := appwebsocket.NewClient(s.Hub, nil, 42, constants.RoleDesigner)
	s.Hub.Connect(client)

	rec, resp := s.do(http.MethodGet, "/api/presence/online", s.token(1, constants.RoleSupervisor), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(map[string]interface{}{"userIds": []interface{}{float64(42)}}, resp.Body)
}

func (s *RouterTestSuite) wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func (s *RouterTestSuite) TestWebSocketAuthFrame() {
	srv := httptest.NewServer(s.Echo)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(srv, ""), nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.WriteJSON(appwebsocket.AuthFrame{Type: "auth", Token: s.token(9, constants.RoleAuditor)}))

	var frame appwebsocket.Envelope
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	s.Require().NoError(conn.ReadJSON(&frame))
	s.Equal(appwebsocket.EventUsersOnline, frame.Type)
	s.True(s.Hub.IsOnline(9))

	s.Require().NoError(s.Hub.EmitToUser(9, appwebsocket.EventNotification, appwebsocket.NotificationPayload{Type: "system", Title: "t", Message: "m"}))
	s.Require().NoError(conn.ReadJSON(&frame))
	s.Equal(appwebsocket.EventNotification, frame.Type)
}

func (s *RouterTestSuite) TestWebSocketRejectsBadTokens() {
	srv := httptest.NewServer(s.Echo)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(srv, "?token=garbage"), nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(srv, ""), nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.WriteJSON(appwebsocket.AuthFrame{Type: "auth", Token: "garbage"}))
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, err = conn.ReadMessage()
	s.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	s.Empty(s.Hub.OnlineUserIDs())
}
