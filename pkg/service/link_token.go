package service

import (
	"encoding/base64"
	"encoding/binary"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "taskly/pkg/errors"
)

// Параметр deep-link Telegram ограничен 64 символами [A-Za-z0-9_-], поэтому
// полноценный JWT не помещается: используем компактный формат
// base64url(userID|expiry) + base64url(HMAC-SHA256).
const (
	linkPayloadLen    = 12
	linkPayloadB64Len = 16
	linkTokenLen      = 59
)

type LinkTokenService interface {
	Generate(userID uint64) (string, error)
	Parse(token string) (uint64, error)
}

type linkTokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewLinkTokenService - ttl == 0 отключает срок действия.
func NewLinkTokenService(secretKey string, ttl time.Duration) LinkTokenService {
	return &linkTokenService{
		key: []byte("telegram-link:" + secretKey),
		ttl: ttl,
		now: time.Now,
	}
}

func (s *linkTokenService) Generate(userID uint64) (string, error) {
	if userID == 0 {
		return "", apperrors.NewInvalidInputError("userID не может быть пустым")
	}

	var expiry uint32
	if s.ttl > 0 {
		expiry = uint32(s.now().Add(s.ttl).Unix())
	}

	payload := make([]byte, linkPayloadLen)
	binary.BigEndian.PutUint64(payload[:8], userID)
	binary.BigEndian.PutUint32(payload[8:], expiry)

	signingString := base64.RawURLEncoding.EncodeToString(payload)
	sig, err := jwt.SigningMethodHS256.Sign(signingString, s.key)
	if err != nil {
		return "", err
	}

	return signingString + base64.RawURLEncoding.EncodeToString(sig), nil
}

func (s *linkTokenService) Parse(token string) (uint64, error) {
	if len(token) != linkTokenLen {
		return 0, apperrors.ErrInvalidToken
	}

	signingString, rawSig := token[:linkPayloadB64Len], token[linkPayloadB64Len:]
	sig, err := base64.RawURLEncoding.DecodeString(rawSig)
	if err != nil {
		return 0, apperrors.ErrInvalidToken
	}
	if err := jwt.SigningMethodHS256.Verify(signingString, sig, s.key); err != nil {
		return 0, apperrors.ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(signingString)
	if err != nil || len(payload) != linkPayloadLen {
		return 0, apperrors.ErrInvalidToken
	}

	userID := binary.BigEndian.Uint64(payload[:8])
	expiry := binary.BigEndian.Uint32(payload[8:])
	if expiry != 0 && s.now().Unix() > int64(expiry) {
		return 0, apperrors.ErrTokenExpired
	}
	if userID == 0 {
		return 0, apperrors.ErrInvalidToken
	}

	return userID, nil
}
