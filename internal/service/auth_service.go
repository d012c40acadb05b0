package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bizdesk/internal/config"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

type MeResponse struct {
	UserResponse
	Permissions []string `json:"permissions"`
}

// --- Interface ---

type AuthService interface {
	Login(ctx context.Context, req LoginUserRequest, userAgent string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error)
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type authService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	roles     repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	cfg       config.AuthConfig
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	roles repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		users:     users,
		sessions:  sessions,
		roles:     roles,
		auditRepo: auditRepo,
		txManager: txManager,
		cfg:       cfg,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginUserRequest, userAgent string) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	}

	var tokens *TokenResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		tokens, err = s.issue(txCtx, user, userAgent)
		if err != nil {
			return err
		}
		audit := newAuditLog(user.ID, model.ActionLogin, user.ID.String(), user.Username, map[string]interface{}{
			"user_agent": userAgent,
		})
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Refresh rotates the session: the presented token is consumed and a new pair issued
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh token", ErrUnauthorized)
	}

	var tokens *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		session, err := s.sessions.FindByToken(txCtx, refreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
			}
			return fmt.Errorf("failed to fetch session: %w", err)
		}
		if err := s.sessions.Delete(txCtx, session.ID); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		if session.Expired(s.now()) {
			return fmt.Errorf("%w: refresh token expired", ErrUnauthorized)
		}
		if !session.User.IsActive {
			return fmt.Errorf("%w: account is disabled", ErrUnauthorized)
		}

		tokens, err = s.issue(txCtx, &session.User, session.UserAgent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	perms, err := s.roles.PermissionCodes(ctx, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return &MeResponse{UserResponse: *mapToResponse(user), Permissions: perms}, nil
}

func (s *authService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		slog.Info("Purged expired sessions", "count", n)
	}
	return n, nil
}

// --- Helpers ---

func (s *authService) issue(ctx context.Context, user *model.User, userAgent string) (*TokenResponse, error) {
	now := s.now()
	access, expiresAt, err := IssueAccessToken([]byte(s.cfg.JWTSecret), user, s.cfg.AccessTTL, now)
	if err != nil {
		return nil, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	session := &model.Session{
		UserID:    user.ID,
		Token:     refresh,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &TokenResponse{
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	}, nil
}

// IssueAccessToken signs an HS256 token carrying sub, role and email claims
func IssueAccessToken(secret []byte, user *model.User, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"role":  user.Role,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, expiresAt, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return uuid.NewString() + "." + hex.EncodeToString(buf), nil
}
