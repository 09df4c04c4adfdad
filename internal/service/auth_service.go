package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	config "github.com/maheshrc27/threads-poster/configs"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/transfer"
	"github.com/maheshrc27/threads-poster/pkg/utils"
	"golang.org/x/oauth2"
)

type AuthService interface {
	// Login performs a single authentication attempt, preferring a cached session.
	Login(ctx context.Context) (*models.Session, error)
	// LoginWithRetry calls Login under the configured retry policy.
	LoginWithRetry(ctx context.Context) (*models.Session, error)
	IsAuthenticated(session *models.Session) bool
}

type authService struct {
	cfg     config.Config
	oauth   *oauth2.Config
	threads ThreadsService
	policy  utils.RetryPolicy
	client  *http.Client
	now     func() time.Time
}

func NewAuthService(cfg config.Config, threads ThreadsService) AuthService {
	return &authService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.Auth.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		threads: threads,
		policy:  utils.RetryPolicy{MaxAttempts: cfg.MaxRetries, Delay: cfg.LoginRetryDelay},
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		now:     time.Now,
	}
}

func (s *authService) IsAuthenticated(session *models.Session) bool {
	return session.Valid(s.now())
}

func (s *authService) LoginWithRetry(ctx context.Context) (*models.Session, error) {
	var session *models.Session
	err := utils.Retry(ctx, s.policy, "login", func(ctx context.Context, attempt int) error {
		slog.Info("login attempt", "attempt", attempt, "max_attempts", s.policy.MaxAttempts)
		var err error
		session, err = s.Login(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *authService) Login(ctx context.Context) (*models.Session, error) {
	if session := s.cachedSession(); session != nil {
		slog.Info("using cached session", "username", session.Username)
		return session, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.PasswordCredentialsToken(ctx, s.cfg.Username, s.cfg.Password)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: token request for %s: %w", models.ErrAuth, s.cfg.Username, err)
	}

	session := &models.Session{
		Username:    s.cfg.Username,
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
		Expiry:      token.Expiry,
	}

	userInfo, err := s.threads.UserInfo(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve user: %w", models.ErrAuth, err)
	}
	session.UserID = userInfo.UserID

	slog.Info("successfully logged in", "username", session.Username, "user_id", session.UserID)
	s.cacheSession(session)
	return session, nil
}

func (s *authService) cacheEnabled() bool {
	return s.cfg.SessionSecret != "" && s.cfg.SessionCachePath != ""
}

func (s *authService) cachedSession() *models.Session {
	if !s.cacheEnabled() {
		return nil
	}

	data, err := os.ReadFile(s.cfg.SessionCachePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("unable to read session cache", "error", err)
		}
		return nil
	}

	claims, err := utils.ValidateSessionToken(s.cfg.SessionSecret, strings.TrimSpace(string(data)))
	if err != nil {
		slog.Warn("ignoring session cache", "error", err)
		return nil
	}
	if claims.Subject != s.cfg.Username {
		slog.Warn("ignoring session cache for a different account")
		return nil
	}

	accessToken, err := utils.Decrypt(claims.EncryptedToken, utils.DeriveKey(s.cfg.SessionSecret))
	if err != nil {
		slog.Warn("ignoring session cache", "error", err)
		return nil
	}

	session := &models.Session{
		Username:    claims.Subject,
		UserID:      claims.UserID,
		AccessToken: accessToken,
		TokenType:   claims.TokenType,
	}
	if claims.ExpiresAt != nil {
		session.Expiry = claims.ExpiresAt.Time
	}
	if !session.Valid(s.now()) {
		return nil
	}
	return session
}

func (s *authService) cacheSession(session *models.Session) {
	if !s.cacheEnabled() {
		return
	}

	encrypted, err := utils.Encrypt([]byte(session.AccessToken), utils.DeriveKey(s.cfg.SessionSecret))
	if err != nil {
		slog.Warn("unable to cache session", "error", err)
		return
	}

	signed, err := utils.GenerateSessionToken(s.cfg.SessionSecret, transfer.SessionClaims{
		Username:       session.Username,
		UserID:         session.UserID,
		TokenType:      session.TokenType,
		EncryptedToken: encrypted,
	}, session.Expiry)
	if err != nil {
		slog.Warn("unable to cache session", "error", err)
		return
	}

	if dir := filepath.Dir(s.cfg.SessionCachePath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			slog.Warn("unable to cache session", "error", err)
			return
		}
	}
	if err := os.WriteFile(s.cfg.SessionCachePath, []byte(signed), 0o600); err != nil {
		slog.Warn("unable to cache session", "error", err)
	}
}
