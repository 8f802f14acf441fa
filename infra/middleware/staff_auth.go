package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staff_server/core/domain"
	"staff_server/pkg/apperr"
	"staff_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// =============================================================================
// Token blacklist
// =============================================================================

// TokenBlacklist records revoked token ids in Redis.
type TokenBlacklist struct {
	redis  *redis.Client
	prefix string
}

// NewTokenBlacklist returns nil when client is nil; a nil blacklist revokes nothing.
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	if client == nil {
		logger.Warn("Redis client not provided, token blacklist disabled")
		return nil
	}
	return &TokenBlacklist{redis: client, prefix: "token:blacklist:"}
}

// Revoke blacklists tokenID until expiry.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiry time.Duration) error {
	if b == nil {
		return nil
	}
	return b.redis.Set(ctx, b.prefix+tokenID, "1", expiry).Err()
}

// IsRevoked fails open when Redis is unreachable.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) bool {
	if b == nil {
		return false
	}
	exists, err := b.redis.Exists(ctx, b.prefix+tokenID).Result()
	if err != nil {
		logger.WithError(err).Warn("token blacklist lookup failed")
		return false
	}
	return exists > 0
}

// =============================================================================
// JWT
// =============================================================================

// Claims carried by access tokens.
type Claims struct {
	Role  domain.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthConfig configures JWTAuth.
type AuthConfig struct {
	Secret    string
	Blacklist *TokenBlacklist
}

// IssueToken signs an HS256 token for user valid for ttl.
func IssueToken(secret string, user *domain.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Role:  user.Role,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth authenticates bearer tokens and stores the domain.Actor in Locals.
func JWTAuth(cfg AuthConfig) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(time.Minute),
		jwt.WithIssuedAt(),
	)
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if cfg.Secret == "" {
			return nil, fmt.Errorf("JWT secret not configured")
		}
		return []byte(cfg.Secret), nil
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			return apperr.Unauthorized("")
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(tokenString, claims, keyFunc); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return apperr.New(apperr.CodeTokenExpired, "Token expired", fiber.StatusUnauthorized)
			}
			logger.WithContext(c.UserContext()).WithError(err).Warn("JWT validation failed")
			return apperr.Unauthorized("")
		}

		if claims.Subject == "" || !claims.Role.IsValid() {
			return apperr.InvalidToken("Token is missing a subject or role")
		}
		if claims.ID != "" && cfg.Blacklist.IsRevoked(c.UserContext(), claims.ID) {
			return apperr.New(apperr.CodeTokenRevoked, "Token has been revoked", fiber.StatusUnauthorized)
		}

		c.Locals(LocalActor, domain.Actor{ID: claims.Subject, Role: claims.Role})
		c.SetUserContext(context.WithValue(c.UserContext(), logger.UserIDKey, claims.Subject))
		return c.Next()
	}
}

// ActorFrom returns the authenticated actor of the request.
func ActorFrom(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(LocalActor).(domain.Actor)
	return actor, ok
}

// RequireRoles rejects actors whose role is not listed.
func RequireRoles(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return apperr.Unauthorized("")
		}
		if !actor.HasRole(roles...) {
			return apperr.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", actor.Role))
		}
		return c.Next()
	}
}
