package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/repositories"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/service"
	"taskly/pkg/telegram"
)

const webhookDedupTTL = 24 * time.Hour

const (
	botMsgInstructions = "Добро пожаловать в бот Taskly! 🤖\n\nЧтобы привязать аккаунт, нажмите кнопку «Привязать Telegram» в приложении Taskly."
	botMsgUserNotFound = "Пользователь не найден. Попробуйте еще раз из приложения."
	botMsgBadLink      = "Ссылка недействительна или устарела. Получите новую в приложении Taskly."
	botMsgFailure      = "Произошла ошибка. Попробуйте еще раз."
	botMsgLinked       = "✅ Аккаунт успешно привязан!\n\nЗдравствуйте, %s! Теперь уведомления Taskly будут приходить в Telegram."
)

// UpdateWatermark - номер последнего обработанного обновления getUpdates.
// Общий на процесс; одновременно выполняется не больше одного опроса.
type UpdateWatermark struct {
	mu       sync.Mutex
	last     int64
	inFlight atomic.Bool
}

func NewUpdateWatermark() *UpdateWatermark {
	return &UpdateWatermark{}
}

func (w *UpdateWatermark) Last() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Advance сдвигает отметку вперед. Возвращает false, если id не больше текущей.
func (w *UpdateWatermark) Advance(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id <= w.last {
		return false
	}
	w.last = id
	return true
}

func (w *UpdateWatermark) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = 0
}

func (w *UpdateWatermark) tryAcquire() bool {
	return w.inFlight.CompareAndSwap(false, true)
}

func (w *UpdateWatermark) release() {
	w.inFlight.Store(false)
}

type TelegramLinkServiceInterface interface {
	LinkURL(ctx context.Context, userID uint64) (*dto.TelegramLinkDTO, error)
	Status(ctx context.Context, userID uint64) (*dto.TelegramStatusDTO, error)
	Unlink(ctx context.Context, userID uint64) error
	HandleUpdate(ctx context.Context, update telegram.Update) error
	// HandleWebhookUpdate обрабатывает обновление один раз; повтор update_id возвращает false.
	HandleWebhookUpdate(ctx context.Context, update telegram.Update) (bool, error)
	Poll(ctx context.Context) (*dto.PollResultDTO, error)
}

type TelegramLinkService struct {
	userRepo    repositories.UserRepositoryInterface
	cache       repositories.CacheRepositoryInterface
	settings    SettingsProvider
	tokens      service.LinkTokenService
	newTelegram TelegramClientFactory
	watermark   *UpdateWatermark
	logger      *zap.Logger
}

func NewTelegramLinkService(
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	settings SettingsProvider,
	tokens service.LinkTokenService,
	newTelegram TelegramClientFactory,
	watermark *UpdateWatermark,
	logger *zap.Logger,
) *TelegramLinkService {
	if newTelegram == nil {
		newTelegram = DefaultTelegramClientFactory
	}
	if watermark == nil {
		watermark = NewUpdateWatermark()
	}
	return &TelegramLinkService{
		userRepo:    userRepo,
		cache:       cache,
		settings:    settings,
		tokens:      tokens,
		newTelegram: newTelegram,
		watermark:   watermark,
		logger:      logger,
	}
}

func (s *TelegramLinkService) LinkURL(ctx context.Context, userID uint64) (*dto.TelegramLinkDTO, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TelegramLinked() {
		chatID := user.TelegramChatID.Int64
		return &dto.TelegramLinkDTO{Linked: true, ChatID: &chatID}, nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.TelegramBotToken == "" || settings.TelegramBotUsername == "" {
		return nil, apperrors.ErrTelegramNotConfigured
	}

	token, err := s.tokens.Generate(userID)
	if err != nil {
		return nil, err
	}
	link := fmt.Sprintf("https://t.me/%s?start=%s", url.PathEscape(settings.TelegramBotUsername), token)
	return &dto.TelegramLinkDTO{Linked: false, URL: link}, nil
}

// Status сначала забирает ожидающие /start, затем сообщает состояние привязки.
func (s *TelegramLinkService) Status(ctx context.Context, userID uint64) (*dto.TelegramStatusDTO, error) {
	if _, err := s.Poll(ctx); err != nil {
		s.logger.Warn("Опрос Telegram перед проверкой статуса не удался", zap.Error(err))
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.TelegramStatusDTO{Linked: user.TelegramLinked()}, nil
}

func (s *TelegramLinkService) Unlink(ctx context.Context, userID uint64) error {
	if err := s.userRepo.UpdateTelegramChatID(ctx, userID, nil); err != nil {
		return err
	}
	s.logger.Info("Telegram отвязан", zap.Uint64("userID", userID))
	return nil
}

func (s *TelegramLinkService) HandleUpdate(ctx context.Context, update telegram.Update) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.TelegramBotToken == "" {
		return apperrors.ErrTelegramNotConfigured
	}
	return s.handleUpdate(ctx, s.newTelegram(settings.TelegramBotToken), update)
}

func (s *TelegramLinkService) HandleWebhookUpdate(ctx context.Context, update telegram.Update) (bool, error) {
	if update.UpdateID != 0 {
		key := fmt.Sprintf(constants.CacheKeyTelegramUpdate, update.UpdateID)
		fresh, err := s.cache.SetNX(ctx, key, "1", webhookDedupTTL)
		switch {
		case err != nil:
			// Без Redis обрабатываем: повтор /start идемпотентен.
			s.logger.Warn("Не удалось проверить повтор update_id", zap.Int64("updateID", update.UpdateID), zap.Error(err))
		case !fresh:
			s.logger.Debug("Повторное обновление Telegram пропущено", zap.Int64("updateID", update.UpdateID))
			return false, nil
		}
	}

	if err := s.HandleUpdate(ctx, update); err != nil {
		return true, err
	}
	return true, nil
}

func (s *TelegramLinkService) Poll(ctx context.Context) (*dto.PollResultDTO, error) {
	if !s.watermark.tryAcquire() {
		return &dto.PollResultDTO{Skipped: true, Watermark: s.watermark.Last()}, nil
	}
	defer s.watermark.release()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.TelegramBotToken == "" {
		return &dto.PollResultDTO{Skipped: true, Watermark: s.watermark.Last()}, nil
	}

	bot := s.newTelegram(settings.TelegramBotToken)
	updates, err := bot.GetUpdates(ctx, s.watermark.Last()+1)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}

	result := &dto.PollResultDTO{}
	for _, u := range updates {
		// Отметка сдвигается до обработки: сбойное обновление не повторяется бесконечно.
		if !s.watermark.Advance(u.UpdateID) {
			continue
		}
		if err := s.handleUpdate(ctx, bot, u); err != nil {
			s.logger.Error("Ошибка обработки обновления Telegram", zap.Int64("updateID", u.UpdateID), zap.Error(err))
		}
		result.Processed++
	}
	result.Watermark = s.watermark.Last()
	return result, nil
}

func (s *TelegramLinkService) handleUpdate(ctx context.Context, bot telegram.ServiceInterface, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}
	payload, ok := telegram.ParseStartCommand(update.Message.Text)
	if !ok {
		return nil
	}
	chatID := update.Message.Chat.ID

	if payload == "" {
		s.reply(ctx, bot, chatID, botMsgInstructions)
		return nil
	}

	userID, err := s.tokens.Parse(payload)
	if err != nil {
		s.logger.Warn("Неверный токен привязки Telegram", zap.Int64("chatID", chatID), zap.Error(err))
		s.reply(ctx, bot, chatID, botMsgBadLink)
		return nil
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.reply(ctx, bot, chatID, botMsgUserNotFound)
			return nil
		}
		s.reply(ctx, bot, chatID, botMsgFailure)
		return err
	}

	if err := s.userRepo.UpdateTelegramChatID(ctx, user.ID, &chatID); err != nil {
		s.reply(ctx, bot, chatID, botMsgFailure)
		return err
	}

	s.logger.Info("Telegram привязан", zap.Uint64("userID", user.ID), zap.Int64("chatID", chatID))
	s.reply(ctx, bot, chatID, fmt.Sprintf(botMsgLinked, telegram.EscapeHTML(user.Name)))
	return nil
}

func (s *TelegramLinkService) reply(ctx context.Context, bot telegram.ServiceInterface, chatID int64, text string) {
	if err := bot.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Error("Не удалось ответить в Telegram", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

// TelegramPollScheduler периодически вызывает Poll в режиме polling.
type TelegramPollScheduler struct {
	cron    *cron.Cron
	service TelegramLinkServiceInterface
	logger  *zap.Logger
}

type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

func NewTelegramPollScheduler(svc TelegramLinkServiceInterface, schedule string, logger *zap.Logger) (*TelegramPollScheduler, error) {
	cl := cronLogger{s: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	sched := &TelegramPollScheduler{cron: c, service: svc, logger: logger}
	if _, err := c.AddFunc(schedule, sched.tick); err != nil {
		return nil, fmt.Errorf("некорректное расписание опроса Telegram %q: %w", schedule, err)
	}
	return sched, nil
}

func (p *TelegramPollScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := p.service.Poll(ctx)
	if err != nil {
		p.logger.Warn("Плановый опрос Telegram не удался", zap.Error(err))
		return
	}
	if res.Processed > 0 {
		p.logger.Info("Обработаны обновления Telegram", zap.Int("count", res.Processed), zap.Int64("watermark", res.Watermark))
	}
}

func (p *TelegramPollScheduler) Start() {
	p.cron.Start()
	p.logger.Info("Опрос Telegram запущен")
}

// Stop останавливает расписание и ждет завершения текущего опроса.
func (p *TelegramPollScheduler) Stop() {
	<-p.cron.Stop().Done()
}
