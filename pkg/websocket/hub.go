package websocket

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// connectedUser - запись реестра: пользователь и все его открытые соединения.
type connectedUser struct {
	userID  uint64
	role    string
	clients map[string]*Client
}

// ConnectedUser - публичное представление записи реестра.
type ConnectedUser struct {
	UserID uint64 `json:"userId"`
	Role   string `json:"role"`
}

// Hub отслеживает подключенных пользователей и рассылает им события.
// Пользователь находится в реестре тогда и только тогда, когда у него есть
// хотя бы одно открытое соединение.
type Hub struct {
	mu     sync.RWMutex
	users  map[uint64]*connectedUser
	logger *zap.Logger
	now    func() time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		users:  make(map[uint64]*connectedUser),
		logger: logger,
		now:    time.Now,
	}
}

// Connect регистрирует соединение. Для первого соединения пользователя
// остальным участникам рассылается user:online; новое соединение всегда
// получает полный список users:online.
func (h *Hub) Connect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, exists := h.users[client.UserID]
	if !exists {
		entry = &connectedUser{
			userID:  client.UserID,
			clients: make(map[string]*Client),
		}
		h.users[client.UserID] = entry
	}
	entry.role = client.Role
	entry.clients[client.ID] = client

	h.logger.Info("Клиент зарегистрирован",
		zap.Uint64("userID", client.UserID),
		zap.String("connectionID", client.ID),
		zap.Int("connections", len(entry.clients)),
	)

	if !exists {
		if msg, err := h.encode(EventUserOnline, client.UserID); err == nil {
			for _, other := range h.users {
				for _, c := range other.clients {
					if c != client {
						h.deliver(c, msg)
					}
				}
			}
		}
	}

	if msg, err := h.encode(EventUsersOnline, h.onlineIDsLocked()); err == nil {
		h.deliver(client, msg)
	}
}

// Disconnect снимает соединение с учета. Когда у пользователя не остается
// соединений, он удаляется из реестра и всем рассылается user:offline.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := entry.clients[client.ID]; !ok {
		return
	}

	delete(entry.clients, client.ID)
	client.closeSend()

	h.logger.Info("Клиент отсоединен",
		zap.Uint64("userID", client.UserID),
		zap.String("connectionID", client.ID),
		zap.Int("connections", len(entry.clients)),
	)

	if len(entry.clients) > 0 {
		return
	}

	delete(h.users, client.UserID)
	if msg, err := h.encode(EventUserOffline, client.UserID); err == nil {
		h.broadcastLocked(msg)
	}
}

// EmitToUser доставляет событие во все соединения пользователя.
// Если пользователь не в сети, событие молча отбрасывается.
func (h *Hub) EmitToUser(userID uint64, event string, payload interface{}) error {
	msg, err := h.encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.users[userID]
	if !ok {
		h.logger.Debug("Пользователь не в сети, событие пропущено", zap.Uint64("userID", userID), zap.String("event", event))
		return nil
	}
	for _, c := range entry.clients {
		h.deliver(c, msg)
	}
	return nil
}

func (h *Hub) EmitToRole(role string, event string, payload interface{}) error {
	msg, err := h.encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, entry := range h.users {
		if entry.role != role {
			continue
		}
		for _, c := range entry.clients {
			h.deliver(c, msg)
		}
	}
	return nil
}

func (h *Hub) EmitToAll(event string, payload interface{}) error {
	msg, err := h.encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastLocked(msg)
	return nil
}

func (h *Hub) ListConnected() []ConnectedUser {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ConnectedUser, 0, len(h.users))
	for _, entry := range h.users {
		out = append(out, ConnectedUser{UserID: entry.userID, Role: entry.role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (h *Hub) OnlineUserIDs() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineIDsLocked()
}

func (h *Hub) IsOnline(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

func (h *Hub) onlineIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Hub) broadcastLocked(msg []byte) {
	for _, entry := range h.users {
		for _, c := range entry.clients {
			h.deliver(c, msg)
		}
	}
}

// deliver не блокирует хаб: если буфер клиента заполнен, кадр отбрасывается.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.Send <- msg:
	default:
		h.logger.Warn("Буфер клиента переполнен, сообщение отброшено",
			zap.Uint64("userID", c.UserID),
			zap.String("connectionID", c.ID),
		)
	}
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, error) {
	envelope := Envelope{
		Type:      event,
		Payload:   payload,
		Timestamp: h.now().UTC(),
	}
	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("Ошибка сериализации сообщения для WebSocket", zap.String("event", event), zap.Error(err))
		return nil, err
	}
	return messageBytes, nil
}
