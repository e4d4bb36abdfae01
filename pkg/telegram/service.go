// Файл: pkg/telegram/service.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// --- ОСНОВНОЙ ИНТЕРФЕЙС СЕРВИСА ---

type ServiceInterface interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
	SetWebhook(ctx context.Context, webhookURL string) error
}

// --- СТРУКТУРА СЕРВИСА ---

type Service struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
	debug      bool
}

type Option func(*Service)

// WithBaseURL подменяет адрес Bot API (используется в тестах).
func WithBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.httpClient = client }
}

func NewService(botToken string, opts ...Option) ServiceInterface {
	s := &Service{
		botToken:   botToken,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		debug:      strings.Contains(strings.ToLower(os.Getenv("DEBUG")), "telegram"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- ОСНОВНЫЕ СТРУКТУРЫ ЗАПРОСОВ ---

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type MessageOption func(*sendMessageRequest)

func WithHTML() MessageOption {
	return func(req *sendMessageRequest) {
		req.ParseMode = "HTML"
	}
}

func WithoutPreview() MessageOption {
	return func(req *sendMessageRequest) {
		req.DisableWebPagePreview = true
	}
}

// SendMessage отправляет сообщение в HTML-разметке. Экранирование - на вызывающей стороне.
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string) error {
	return s.SendMessageEx(ctx, chatID, text, WithHTML())
}

func (s *Service) SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error {
	reqPayload := &sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	}

	for _, opt := range options {
		opt(reqPayload)
	}

	return s.sendRequest(ctx, "sendMessage", reqPayload, nil)
}

// GetUpdates запрашивает обновления начиная с offset (без long polling).
func (s *Service) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var updates []Update
	err := s.sendRequest(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        0,
		AllowedUpdates: []string{"message"},
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

func (s *Service) SetWebhook(ctx context.Context, webhookURL string) error {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return fmt.Errorf("некорректный адрес вебхука: %w", err)
	}
	return s.sendRequest(ctx, "setWebhook", map[string]interface{}{
		"url":             webhookURL,
		"allowed_updates": []string{"message"},
	}, nil)
}

// --- ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ ---

func (s *Service) sendRequest(ctx context.Context, methodName string, payload interface{}, result interface{}) error {
	if s.botToken == "" {
		return fmt.Errorf("токен Telegram-бота не установлен")
	}

	apiURL := fmt.Sprintf("%s/bot%s/%s", s.baseURL, s.botToken, methodName)

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса в Telegram: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if s.debug {
		fmt.Printf("[telegram] %s\nRequest: %s\nResponse: %s\n\n", methodName, string(reqBody), string(body))
	}

	var telegramResp struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description,omitempty"`
		ErrorCode   int             `json:"error_code,omitempty"`
		Result      json.RawMessage `json:"result,omitempty"`
	}

	if err := json.Unmarshal(body, &telegramResp); err != nil {
		return fmt.Errorf("ошибка декодирования ответа Telegram API (HTTP %d): %w", resp.StatusCode, err)
	}

	if !telegramResp.OK {
		return &APIError{Method: methodName, Code: telegramResp.ErrorCode, Description: telegramResp.Description}
	}

	if result != nil && len(telegramResp.Result) > 0 {
		if err := json.Unmarshal(telegramResp.Result, result); err != nil {
			return fmt.Errorf("ошибка декодирования результата %s: %w", methodName, err)
		}
	}

	return nil
}

// APIError - ответ Bot API с ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API ошибка (%s): код %d, описание: %s", e.Method, e.Code, e.Description)
}

// EscapeHTML экранирует текст для parse_mode=HTML.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}
