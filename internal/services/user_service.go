package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/clients/github"
	userrepo "github.com/yungbote/repodoc-backend/internal/data/repos/users"
	types "github.com/yungbote/repodoc-backend/internal/domain/users"
	"github.com/yungbote/repodoc-backend/internal/pkg/apperr"
	"github.com/yungbote/repodoc-backend/internal/pkg/dbctx"
	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// UserService registers actors and hands out API tokens. Registration
// takes a GitHub access token, verifies it against the GitHub API, and
// stores it sealed; the plaintext never leaves this call.
type UserService interface {
	RegisterToken(ctx context.Context, accessToken string) (*types.User, string, error)
	VerifyAPIToken(tokenString string) (uuid.UUID, error)
}

type userService struct {
	users     userrepo.UserRepo
	tokens    TokenService
	gh        github.Client
	jwtSecret string
	jwtTTL    time.Duration
	log       *logger.Logger
}

func NewUserService(users userrepo.UserRepo, tokens TokenService, gh github.Client, log *logger.Logger) UserService {
	return &userService{
		users:     users,
		tokens:    tokens,
		gh:        gh,
		jwtSecret: envutil.String("JWT_SECRET_KEY", ""),
		jwtTTL:    envutil.Duration("JWT_TTL", 30*24*time.Hour),
		log:       log.With("service", "UserService"),
	}
}

// RegisterToken verifies the GitHub token, upserts the actor's profile,
// seals the token at rest, and returns a signed API token for the actor.
func (s *userService) RegisterToken(ctx context.Context, accessToken string) (*types.User, string, error) {
	if accessToken == "" {
		return nil, "", fmt.Errorf("%w: access token required", apperr.ErrInvalidArgument)
	}
	gu, err := s.gh.AuthenticatedUser(ctx, accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("%w: github rejected token", apperr.ErrUnauthorized)
	}

	dbc := dbctx.Context{Ctx: ctx}
	user, err := s.users.Upsert(dbc, &types.User{
		GithubID: gu.ID,
		Login:    gu.Login,
		Name:     gu.Name,
		Email:    gu.Email,
	})
	if err != nil {
		return nil, "", err
	}

	sealed, err := s.tokens.Encrypt(accessToken)
	if err != nil {
		return nil, "", err
	}
	if err := s.users.SetEncryptedToken(dbc, user.ID, sealed); err != nil {
		return nil, "", err
	}

	apiToken, err := s.signAPIToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("Actor registered", "user_id", user.ID, "login", user.Login)
	return user, apiToken, nil
}

func (s *userService) signAPIToken(userID uuid.UUID) (string, error) {
	if s.jwtSecret == "" {
		return "", fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyAPIToken parses a bearer token and returns the actor id.
func (s *userService) VerifyAPIToken(tokenString string) (uuid.UUID, error) {
	if s.jwtSecret == "" {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	return userID, nil
}
