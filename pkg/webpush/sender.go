// Файл: pkg/webpush/sender.go
package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
)

const defaultTTL = 60 * 60 * 24

// VAPIDKeys - пара ключей и контакт отправителя.
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

func (k VAPIDKeys) Configured() bool {
	return k.PublicKey != "" && k.PrivateKey != ""
}

// Message - содержимое push-уведомления, которое читает service worker.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, subscription json.RawMessage, payload []byte, keys VAPIDKeys) error
}

// DeliveryError - push-сервис ответил кодом >= 400.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("push-сервис вернул статус %d: %s", e.StatusCode, e.Body)
}

// IsGone сообщает, что подписка больше не существует (404/410) и её нужно удалить.
func IsGone(err error) bool {
	var de *DeliveryError
	if !errors.As(err, &de) {
		return false
	}
	return de.StatusCode == http.StatusNotFound || de.StatusCode == http.StatusGone
}

type sender struct {
	httpClient *http.Client
}

func NewSender() Sender {
	return &sender{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (s *sender) Send(ctx context.Context, subscription json.RawMessage, payload []byte, keys VAPIDKeys) error {
	if !keys.Configured() {
		return fmt.Errorf("VAPID-ключи не настроены")
	}

	var sub wp.Subscription
	if err := json.Unmarshal(subscription, &sub); err != nil {
		return fmt.Errorf("некорректные данные подписки: %w", err)
	}
	if sub.Endpoint == "" {
		return fmt.Errorf("в подписке отсутствует endpoint")
	}

	resp, err := wp.SendNotificationWithContext(ctx, payload, &sub, &wp.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      strings.TrimPrefix(keys.Subject, "mailto:"),
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             defaultTTL,
		Urgency:         wp.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("ошибка отправки push-уведомления: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// GenerateVAPIDKeys создает новую пару ключей (используется командой CLI).
func GenerateVAPIDKeys() (VAPIDKeys, error) {
	privateKey, publicKey, err := wp.GenerateVAPIDKeys()
	if err != nil {
		return VAPIDKeys{}, err
	}
	return VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey}, nil
}
