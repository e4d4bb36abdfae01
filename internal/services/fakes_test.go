package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"taskly/internal/entities"
	"taskly/internal/repositories"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/eventbus"
	"taskly/pkg/geo"
	"taskly/pkg/telegram"
	"taskly/pkg/webpush"
)

// --- уведомления ---

type fakeNotificationRepo struct {
	mu         sync.Mutex
	items      []entities.Notification
	createErr  error
	lastOffset uint64
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *entities.Notification) (*entities.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	saved := *n
	saved.ID = uint64(len(r.items) + 1)
	now := time.Now()
	saved.CreatedAt = &now
	r.items = append(r.items, saved)
	return &saved, nil
}

func (r *fakeNotificationRepo) ListForUser(ctx context.Context, userID uint64, limit, offset uint64) ([]entities.Notification, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastOffset = offset
	var mine []entities.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].RecipientID == userID {
			mine = append(mine, r.items[i])
		}
	}
	total := uint64(len(mine))
	if offset >= total {
		return []entities.Notification{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n uint64
	for _, it := range r.items {
		if it.RecipientID == userID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].RecipientID == userID {
			r.items[i].IsRead = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.items {
		if r.items[i].RecipientID == userID && !r.items[i].IsRead {
			r.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// --- пользователи ---

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[uint64]*entities.User
	findErr error
	updates int
}

func newFakeUserRepo(users ...entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint64]*entities.User)}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
	}
	return r
}

func (r *fakeUserRepo) FindUserByID(ctx context.Context, id uint64) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindUsersByRoles(ctx context.Context, roles []string) ([]entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.User
	for _, u := range r.users {
		for _, role := range roles {
			if u.Role == role {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateTelegramChatID(ctx context.Context, userID uint64, chatID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.updates++
	if chatID == nil {
		u.TelegramChatID.Valid = false
		u.TelegramChatID.Int64 = 0
		return nil
	}
	u.TelegramChatID.Valid = true
	u.TelegramChatID.Int64 = *chatID
	return nil
}

func (r *fakeUserRepo) chatID(userID uint64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	return u.TelegramChatID.Int64, u.TelegramChatID.Valid
}

// --- настройки ---

type fakeSettings struct {
	settings entities.SystemSettings
	err      error
}

func (f *fakeSettings) Get(ctx context.Context) (*entities.SystemSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.settings
	return &s, nil
}

// --- сокеты ---

type emitted struct {
	UserID  uint64
	Event   string
	Payload interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) EmitToUser(userID uint64, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{UserID: userID, Event: event, Payload: payload})
	return nil
}

func (f *fakeEmitter) all() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.events...)
}

// --- Telegram ---

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeTelegram struct {
	mu        sync.Mutex
	sent      []sentMessage
	updates   []telegram.Update
	offsets   []int64
	sendErr   error
	getBlock  chan struct{}
	getCalled chan struct{}
}

func (f *fakeTelegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	return f.SendMessageEx(ctx, chatID, text)
}

func (f *fakeTelegram) SendMessageEx(ctx context.Context, chatID int64, text string, options ...telegram.MessageOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTelegram) GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	if f.getCalled != nil {
		f.getCalled <- struct{}{}
	}
	if f.getBlock != nil {
		<-f.getBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	var out []telegram.Update
	for _, u := range f.updates {
		if u.UpdateID >= offset {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeTelegram) SetWebhook(ctx context.Context, webhookURL string) error { return nil }

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeTelegram) factory() TelegramClientFactory {
	return func(string) telegram.ServiceInterface { return f }
}

// --- push ---

type fakePushRepo struct {
	mu      sync.Mutex
	subs    []entities.PushSubscription
	deleted []uint64
}

func (r *fakePushRepo) Upsert(ctx context.Context, userID uint64, endpoint string, sub json.RawMessage) (*entities.PushSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.subs {
		if r.subs[i].UserID == userID && r.subs[i].Endpoint == endpoint {
			r.subs[i].Subscription = sub
			s := r.subs[i]
			return &s, nil
		}
	}
	s := entities.PushSubscription{ID: uint64(len(r.subs) + 100), UserID: userID, Endpoint: endpoint, Subscription: sub}
	r.subs = append(r.subs, s)
	return &s, nil
}

func (r *fakePushRepo) ListByUser(ctx context.Context, userID uint64, limit uint64) ([]entities.PushSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.PushSubscription
	for _, s := range r.subs {
		if s.UserID == userID && uint64(len(out)) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakePushRepo) DeleteByID(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	for i := range r.subs {
		if r.subs[i].ID == id {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakePushRepo) DeleteByEndpoint(ctx context.Context, userID uint64, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.subs {
		if r.subs[i].UserID == userID && r.subs[i].Endpoint == endpoint {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakePushRepo) deletedIDs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.deleted...)
}

// fakeSender отвечает ошибкой по endpoint подписки.
type fakeSender struct {
	mu       sync.Mutex
	failures map[string]error
	payloads [][]byte
}

func (f *fakeSender) Send(ctx context.Context, subscription json.RawMessage, payload []byte, keys webpush.VAPIDKeys) error {
	var sub struct {
		Endpoint string `json:"endpoint"`
	}
	_ = json.Unmarshal(subscription, &sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if err, ok := f.failures[sub.Endpoint]; ok {
		return err
	}
	return nil
}

func (f *fakeSender) sentPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// --- кеш ---

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	switch v := value.(type) {
	case []byte:
		c.values[key] = string(v)
	case string:
		c.values[key] = v
	default:
		raw, _ := json.Marshal(v)
		c.values[key] = string(raw)
	}
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	v, ok := c.values[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return c.err
}

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if _, exists := c.values[key]; exists {
		return false, nil
	}
	c.values[key] = "1"
	return true, nil
}

// --- визиты ---

type fakeVisitRepo struct {
	mu     sync.Mutex
	visits []entities.Visit
}

func (r *fakeVisitRepo) Create(ctx context.Context, tx pgx.Tx, v *entities.Visit) (*entities.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *v
	saved.ID = uint64(len(r.visits) + 1)
	r.visits = append(r.visits, saved)
	return &saved, nil
}

func (r *fakeVisitRepo) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.visits {
		if v.ID == id {
			copied := v
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeVisitRepo) FindLatestCheckInSince(ctx context.Context, tx pgx.Tx, repID uint64, since time.Time) (*entities.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entities.Visit
	for i := range r.visits {
		v := &r.visits[i]
		if v.RepresentativeID != repID || !v.CheckInTime.After(since) {
			continue
		}
		if latest == nil || v.CheckInTime.After(latest.CheckInTime) {
			latest = v
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeVisitRepo) CheckOut(ctx context.Context, id uint64, at time.Time, location *geo.Point) (*entities.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.visits {
		if r.visits[i].ID == id {
			r.visits[i].Status = constants.VisitStatusCheckedOut
			r.visits[i].CheckOutTime.SetValid(at)
			r.visits[i].CheckOutLocation = location
			copied := r.visits[i]
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeVisitRepo) ListForPeriod(ctx context.Context, repID uint64, from, to time.Time) ([]entities.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Visit
	for _, v := range r.visits {
		if v.RepresentativeID == repID && !v.CheckInTime.Before(from) && v.CheckInTime.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeClientRepo struct {
	clients map[uint64]*entities.Client
}

func (r *fakeClientRepo) FindByID(ctx context.Context, id uint64) (*entities.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

var errBoom = errors.New("boom")
