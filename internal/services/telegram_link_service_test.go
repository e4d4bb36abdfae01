package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/entities"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/service"
	"taskly/pkg/telegram"
)

type linkFixture struct {
	users    *fakeUserRepo
	cache    *fakeCache
	settings *fakeSettings
	tokens   service.LinkTokenService
	tg       *fakeTelegram
	service  *TelegramLinkService
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()
	f := &linkFixture{
		users: newFakeUserRepo(
			entities.User{ID: 1, Name: "Иван <Петров>", Role: constants.RoleSalesRep, IsActive: true},
			entities.User{ID: 2, Name: "Связанный", Role: constants.RoleDesigner, IsActive: true, TelegramChatID: null.Int64From(555)},
		),
		cache: newFakeCache(),
		settings: &fakeSettings{settings: entities.SystemSettings{
			TelegramEnabled:     true,
			TelegramBotToken:    "bot-token",
			TelegramBotUsername: "taskly_bot",
		}},
		tokens: service.NewLinkTokenService("test-secret", time.Hour),
		tg:     &fakeTelegram{},
	}
	f.service = NewTelegramLinkService(f.users, f.cache, f.settings, f.tokens, f.tg.factory(), NewUpdateWatermark(), zap.NewNop())
	return f
}

func (f *linkFixture) startUpdate(t *testing.T, updateID int64, chatID int64, userID uint64) telegram.Update {
	t.Helper()
	token, err := f.tokens.Generate(userID)
	require.NoError(t, err)
	return telegram.Update{
		UpdateID: updateID,
		Message:  &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: "/start " + token},
	}
}

func textUpdate(updateID int64, chatID int64, text string) telegram.Update {
	return telegram.Update{UpdateID: updateID, Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: text}}
}

func TestTelegramLink_PollLinksAccountOnce(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	f.tg.updates = []telegram.Update{f.startUpdate(t, 5, 777, 1)}

	res, err := f.service.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, &dto.PollResultDTO{Processed: 1, Watermark: 5}, res)

	chatID, linked := f.users.chatID(1)
	assert.True(t, linked)
	assert.Equal(t, int64(777), chatID)

	msgs := f.tg.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(777), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Аккаунт успешно привязан")
	assert.Contains(t, msgs[0].Text, "Иван &lt;Петров&gt;")

	res, err = f.service.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, int64(5), res.Watermark)
	assert.Equal(t, []int64{1, 6}, f.tg.offsets)
	assert.Len(t, f.tg.messages(), 1)
}

func TestTelegramLink_ReplayIsIdempotent(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	update := f.startUpdate(t, 1, 777, 1)

	require.NoError(t, f.service.HandleUpdate(ctx, update))
	require.NoError(t, f.service.HandleUpdate(ctx, update))

	chatID, linked := f.users.chatID(1)
	assert.True(t, linked)
	assert.Equal(t, int64(777), chatID)
	for _, m := range f.tg.messages() {
		assert.Contains(t, m.Text, "Аккаунт успешно привязан")
	}
}

func TestTelegramLink_Replies(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		update telegram.Update
		reply  string
	}{
		{name: "bare start", update: textUpdate(1, 100, "/start"), reply: botMsgInstructions},
		{name: "bad token", update: textUpdate(2, 101, "/start garbage"), reply: botMsgBadLink},
		{name: "unknown user", update: f.startUpdate(t, 3, 102, 999), reply: botMsgUserNotFound},
		{name: "start with bot name", update: textUpdate(4, 103, "/start@taskly_bot"), reply: botMsgInstructions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.tg.messages())
			require.NoError(t, f.service.HandleUpdate(ctx, tt.update))

			msgs := f.tg.messages()
			require.Len(t, msgs, before+1)
			assert.Equal(t, tt.update.Message.Chat.ID, msgs[before].ChatID)
			assert.Equal(t, tt.reply, msgs[before].Text)
		})
	}
	assert.Zero(t, f.users.updates)
}

func TestTelegramLink_IgnoresOtherMessages(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.HandleUpdate(ctx, textUpdate(1, 100, "привет")))
	require.NoError(t, f.service.HandleUpdate(ctx, telegram.Update{UpdateID: 2}))

	assert.Empty(t, f.tg.messages())
}

func TestTelegramLink_ForeignTokenIsRejected(t *testing.T) {
	f := newLinkFixture(t)
	foreign := service.NewLinkTokenService("other-secret", time.Hour)
	token, err := foreign.Generate(1)
	require.NoError(t, err)

	require.NoError(t, f.service.HandleUpdate(context.Background(), textUpdate(1, 100, "/start "+token)))

	_, linked := f.users.chatID(1)
	assert.False(t, linked)
	require.Len(t, f.tg.messages(), 1)
	assert.Equal(t, botMsgBadLink, f.tg.messages()[0].Text)
}

func TestTelegramLink_ConcurrentPollIsSkipped(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	f.tg.getBlock = make(chan struct{})
	f.tg.getCalled = make(chan struct{}, 1)
	f.tg.updates = []telegram.Update{f.startUpdate(t, 9, 777, 1)}

	done := make(chan *dto.PollResultDTO, 1)
	go func() {
		res, err := f.service.Poll(ctx)
		assert.NoError(t, err)
		done <- res
	}()
	<-f.tg.getCalled

	second, err := f.service.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Zero(t, second.Processed)

	close(f.tg.getBlock)
	first := <-done
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, int64(9), first.Watermark)
}

func TestTelegramLink_PollWithoutTokenIsSkipped(t *testing.T) {
	f := newLinkFixture(t)
	f.settings.settings.TelegramBotToken = ""

	res, err := f.service.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, f.tg.offsets)
}

func TestTelegramLink_WebhookDeduplicatesUpdates(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	update := f.startUpdate(t, 42, 777, 1)

	handled, err := f.service.HandleWebhookUpdate(ctx, update)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = f.service.HandleWebhookUpdate(ctx, update)
	require.NoError(t, err)
	assert.False(t, handled)

	assert.Len(t, f.tg.messages(), 1)
	assert.Equal(t, 1, f.users.updates)
}

func TestTelegramLink_WebhookWithoutCacheStillHandles(t *testing.T) {
	f := newLinkFixture(t)
	f.cache.err = errBoom

	handled, err := f.service.HandleWebhookUpdate(context.Background(), f.startUpdate(t, 42, 777, 1))
	require.NoError(t, err)
	assert.True(t, handled)

	_, linked := f.users.chatID(1)
	assert.True(t, linked)
}

func TestTelegramLink_LinkURL(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	link, err := f.service.LinkURL(ctx, 1)
	require.NoError(t, err)
	assert.False(t, link.Linked)
	require.True(t, strings.HasPrefix(link.URL, "https://t.me/taskly_bot?start="))

	userID, err := f.tokens.Parse(strings.TrimPrefix(link.URL, "https://t.me/taskly_bot?start="))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), userID)

	linked, err := f.service.LinkURL(ctx, 2)
	require.NoError(t, err)
	assert.True(t, linked.Linked)
	require.NotNil(t, linked.ChatID)
	assert.Equal(t, int64(555), *linked.ChatID)
	assert.Empty(t, linked.URL)

	f.settings.settings.TelegramBotUsername = ""
	_, err = f.service.LinkURL(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrTelegramNotConfigured)

	_, err = f.service.LinkURL(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTelegramLink_StatusPollsPendingUpdates(t *testing.T) {
	f := newLinkFixture(t)
	f.tg.updates = []telegram.Update{f.startUpdate(t, 3, 777, 1)}

	status, err := f.service.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.Linked)
}

func TestTelegramLink_Unlink(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Unlink(ctx, 2))
	_, linked := f.users.chatID(2)
	assert.False(t, linked)

	assert.ErrorIs(t, f.service.Unlink(ctx, 404), apperrors.ErrNotFound)
}

func TestUpdateWatermark(t *testing.T) {
	w := NewUpdateWatermark()

	assert.True(t, w.Advance(3))
	assert.False(t, w.Advance(3))
	assert.False(t, w.Advance(2))
	assert.True(t, w.Advance(10))
	assert.Equal(t, int64(10), w.Last())

	w.Reset()
	assert.Zero(t, w.Last())

	require.True(t, w.tryAcquire())
	assert.False(t, w.tryAcquire())
	w.release()
	assert.True(t, w.tryAcquire())
}
