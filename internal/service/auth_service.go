package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	apperrors "agentdesk/internal/errors"
	"agentdesk/internal/model"
	"agentdesk/internal/repository"
)

// AuthService is the identity provider: sign up, sign in, and resolving a
// bearer token back to the signed-in account.
type AuthService struct {
	accounts  *repository.AccountRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(accounts *repository.AccountRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		accounts:  accounts,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

type AuthResult struct {
	Token   string        `json:"token"`
	Account model.Account `json:"account"`
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, *apperrors.APIError) {
	normalizedEmail := normalizeEmail(email)
	if normalizedEmail == "" || !strings.Contains(normalizedEmail, "@") {
		return nil, apperrors.BadRequest("invalid_email", "a valid email is required")
	}
	if len(password) < 6 {
		return nil, apperrors.BadRequest("invalid_password", "password must be at least 6 characters")
	}

	_, err := s.accounts.GetByEmail(ctx, normalizedEmail)
	if err == nil {
		return nil, apperrors.Conflict("email_exists", "email already registered", nil)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Msg("register: lookup account")
		return nil, apperrors.Unavailable("failed to query account")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("failed to secure password")
	}

	now := time.Now().UTC()
	account := model.Account{
		ID:           uuid.NewString(),
		Email:        normalizedEmail,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, &account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.Conflict("email_exists", "email already registered", nil)
		}
		log.Error().Err(err).Msg("register: create account")
		return nil, apperrors.Unavailable("failed to create account")
	}
	log.Info().Str("account_id", account.ID).Msg("account registered")

	return s.authenticated(account)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, *apperrors.APIError) {
	normalizedEmail := normalizeEmail(email)
	if normalizedEmail == "" || password == "" {
		return nil, apperrors.BadRequest("invalid_credentials", "email and password are required")
	}

	account, err := s.accounts.GetByEmail(ctx, normalizedEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		log.Error().Err(err).Msg("login: lookup account")
		return nil, apperrors.Unavailable("failed to query account")
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	return s.authenticated(*account)
}

// CurrentAccount resolves the account behind a verified token subject.
func (s *AuthService) CurrentAccount(ctx context.Context, accountID string) (*model.Account, *apperrors.APIError) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("account no longer exists")
	}
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("current account")
		return nil, apperrors.Unavailable("failed to query account")
	}
	return account, nil
}

func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}

	return claims.Subject, nil
}

func (s *AuthService) authenticated(account model.Account) (*AuthResult, *apperrors.APIError) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   account.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token")
	}

	account.PasswordHash = ""
	return &AuthResult{Token: signed, Account: account}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
