package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	"ghostlore.app/errors"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

// AuthService handles account registration and cache-backed sessions.
// Sessions live only in the cache: losing one logs the user out, which is
// the disposable-cache contract.
type AuthService struct {
	db       *gorm.DB
	users    *repository.UserRepository
	cache    *cache.Client
	authCfg  config.AuthConfig
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, users *repository.UserRepository, cacheClient *cache.Client, authCfg config.AuthConfig) *AuthService {
	return &AuthService{
		db:      db,
		users:   users,
		cache:   cacheClient,
		authCfg: authCfg,
	}
}

// Register creates an account and opens a session
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", errors.Wrap(errors.ConfigurationError, "failed to hash password", err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.users.Create(tx, user)
	})
	if err != nil {
		return nil, "", database.Classify(err, "user")
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	slog.Info("User registered", "userID", user.ID)
	return user, token, nil
}

// Login verifies credentials and opens a session
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	user, err := s.users.FindByEmail(req.Email)
	if err != nil {
		return nil, "", database.Classify(err, "user")
	}
	if user == nil {
		return nil, "", errors.NewUnauthorizedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", errors.NewUnauthorizedError("invalid email or password")
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Logout destroys the session
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, cache.SessionKey(token))
}

// openSession stores a session entry under an opaque token. The session
// write is the one cache operation that must not fail soft: a token the
// store never accepted would be unusable on the next request.
func (s *AuthService) openSession(ctx context.Context, userID string) (string, error) {
	token := uuid.New().String()
	session := models.Session{Token: token, UserID: userID}

	if err := s.cache.Set(ctx, cache.SessionKey(token), session, s.authCfg.SessionTTL()); err != nil {
		return "", errors.NewCacheError("failed to store session", err)
	}

	ok, err := s.cache.Exists(ctx, cache.SessionKey(token))
	if err != nil || !ok {
		return "", errors.NewCacheError("failed to store session", err)
	}

	return token, nil
}
