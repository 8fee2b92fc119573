package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// AuthConfig configures sessions and password hashing.
type AuthConfig struct {
	Secret     []byte
	SessionTTL time.Duration
	BcryptCost int
}

// AuthService handles accounts and sessions. A token is an HS256 JWT whose
// jti is the session id; the session row decides whether it is still valid.
type AuthService struct {
	store  *store.Store
	cfg    AuthConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(s *store.Store, cfg AuthConfig, log *logger.Logger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{store: s, cfg: cfg, logger: log, now: time.Now}
}

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	role := req.Role
	if role == "" {
		role = model.UserRoleStudent
	}

	user, err := s.CreateUser(ctx, req.Username, req.Password, req.Name, role)
	if err != nil {
		return nil, err
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return &model.AuthResponse{User: user, Token: token}, nil
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("invalid username or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
		return nil, unauthorized("invalid username or password")
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{User: user, Token: token}, nil
}

// Logout deletes the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, claims.ID)
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// deleted on the way.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("invalid session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !s.now().Before(sess.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, sess.ID); err != nil {
			s.logger.Warn("failed to delete expired session", zap.String("session_id", sess.ID), zap.Error(err))
		}
		return nil, unauthorized("session expired")
	}
	if sess.UserID != claims.Subject {
		return nil, unauthorized("invalid session")
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("invalid session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// CreateUser hashes the password and inserts an account.
func (s *AuthService) CreateUser(ctx context.Context, username, password, name string, role model.UserRole) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.TrimSpace(name) == "" {
		return nil, invalid("username, password and name are required")
	}
	if role != model.UserRoleStudent && role != model.UserRoleTeacher {
		return nil, invalid("invalid role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     username,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, invalid("username %q is already taken", username)
		}
		return nil, err
	}
	return user, nil
}

// BatchCreateStudents creates student accounts one by one and reports each
// outcome; a failing row does not stop the batch.
func (s *AuthService) BatchCreateStudents(ctx context.Context, students []model.NewStudent) []model.BatchCreateResult {
	results := make([]model.BatchCreateResult, 0, len(students))
	for _, st := range students {
		user, err := s.CreateUser(ctx, st.Username, st.Password, st.Name, model.UserRoleStudent)
		if err != nil {
			results = append(results, model.BatchCreateResult{Username: st.Username, Error: err.Error()})
			continue
		}
		results = append(results, model.BatchCreateResult{Success: true, Username: user.Username, ID: user.ID})
	}
	return results
}

func (s *AuthService) openSession(ctx context.Context, userID string) (string, error) {
	now := s.now()
	sess := &model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse verifies the signature only. Expiry is checked against the session
// row so that expired sessions can be cleaned up.
func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil || claims.ID == "" {
		return nil, unauthorized("invalid token")
	}
	return claims, nil
}
