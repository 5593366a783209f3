// Package auth управляет сессией клиента: токен доступа выпускается внешним
// сервисом, клиент только читает из него идентичность и хранит до выхода.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/models"
)

var (
	// ErrNotLoggedIn сессии нет
	ErrNotLoggedIn = errors.New("not logged in, run 'chatsync login' first")
	// ErrSessionExpired срок действия токена истек
	ErrSessionExpired = errors.New("session expired, run 'chatsync login' again")
	// ErrInvalidToken токен не удалось разобрать
	ErrInvalidToken = errors.New("invalid access token")
)

//go:generate moq -out service_mock.go . Service

// Service defines session management of the client
type Service interface {
	// Login проверяет токен и сохраняет сессию для сервера serverURL
	Login(ctx context.Context, serverURL, token string) (*models.Session, error)

	// Current возвращает действующую сессию
	Current(ctx context.Context) (*models.Session, error)

	// Logout удаляет локальную сессию
	Logout(ctx context.Context) error
}

// claims поля токена, которые нужны клиенту
type claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type service struct {
	sessions storage.SessionStorage
	now      func() time.Time
}

// NewService создает сервис сессий поверх локального хранилища
func NewService(sessions storage.SessionStorage) Service {
	return &service{
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *service) Login(ctx context.Context, serverURL, token string) (*models.Session, error) {
	u, err := url.Parse(serverURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", serverURL)
	}

	session, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	session.ServerURL = serverURL

	if session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// parse читает claims без проверки подписи: секрет есть только у сервера,
// он отклонит поддельный токен при первом запросе
func (s *service) parse(token string) (*models.Session, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no user id", ErrInvalidToken)
	}

	session := &models.Session{
		UserID:   userID,
		Username: c.Username,
		Token:    token,
	}
	if session.Username == "" {
		session.Username = userID
	}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time
	}
	return session, nil
}

func (s *service) Current(ctx context.Context) (*models.Session, error) {
	session, err := s.sessions.GetSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.Expired(s.now()) {
		return session, ErrSessionExpired
	}
	return session, nil
}

func (s *service) Logout(ctx context.Context) error {
	err := s.sessions.DeleteSession(ctx)
	if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
