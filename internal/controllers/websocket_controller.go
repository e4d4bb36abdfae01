package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly/internal/dto"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/service"
	"taskly/pkg/utils"
	appwebsocket "taskly/pkg/websocket"
)

const authFrameTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
		logger:     logger,
	}
}

func (c *WebSocketController) authenticate(token string) (*service.JwtCustomClaim, error) {
	claims, err := c.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotAccess
	}
	return claims, nil
}

// ServeWs принимает токен из query-параметра token либо первым сообщением {"type":"auth"}.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	var claims *service.JwtCustomClaim
	if token := ctx.QueryParam("token"); token != "" {
		var err error
		claims, err = c.authenticate(token)
		if err != nil {
			c.logger.Warn("WebSocket: неверный токен в запросе", zap.Error(err))
			return ctx.String(http.StatusUnauthorized, "Invalid token")
		}
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return err
	}

	if claims == nil {
		token, err := appwebsocket.ReadAuthFrame(conn, authFrameTimeout)
		if err == nil {
			claims, err = c.authenticate(token)
		}
		if err != nil {
			c.logger.Warn("WebSocket: авторизация не пройдена", zap.Error(err))
			rejectConn(conn)
			return nil
		}
	}

	client := appwebsocket.NewClient(c.hub, conn, claims.UserID, claims.Role)
	c.hub.Connect(client)

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("WebSocket: клиент успешно подключен", zap.Uint64("userID", claims.UserID), zap.String("connID", client.ID))
	return nil
}

func rejectConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

type PresenceController struct {
	hub    *appwebsocket.Hub
	logger *zap.Logger
}

func NewPresenceController(hub *appwebsocket.Hub, logger *zap.Logger) *PresenceController {
	return &PresenceController{hub: hub, logger: logger}
}

func (c *PresenceController) Online(ctx echo.Context) error {
	ids := c.hub.OnlineUserIDs()
	return utils.SuccessResponse(ctx, dto.OnlineUsersDTO{UserIDs: ids}, "Пользователи в сети", http.StatusOK)
}
