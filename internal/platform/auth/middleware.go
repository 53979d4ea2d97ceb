package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Claims carried by clinic platform access tokens.
type Claims struct {
	jwt.RegisteredClaims
	ClinicID string   `json:"clinic_id"`
	Roles    []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// JWKSTimeout bounds one key lookup, retries included. Zero means
	// defaultJWKSLookupTimeout.
	JWKSTimeout time.Duration
	// SigningKey enables HS256 validation for development and tests.
	SigningKey []byte
}

// keyFunc returns a per-request key lookup. JWKS fetches run under the
// request context, capped at JWKSTimeout.
func (cfg JWTConfig) keyFunc(logger zerolog.Logger) (func(context.Context) jwt.Keyfunc, []string) {
	if len(cfg.SigningKey) > 0 {
		static := func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
		return func(context.Context) jwt.Keyfunc { return static }, []string{"HS256"}
	}

	timeout := cfg.JWKSTimeout
	if timeout <= 0 {
		timeout = defaultJWKSLookupTimeout
	}
	cache := NewJWKSCache(cfg.JWKSURL, defaultJWKSCacheTTL, logger)
	return func(ctx context.Context) jwt.Keyfunc {
		return func(token *jwt.Token) (interface{}, error) {
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("token has no kid header")
			}
			lookupCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return cache.GetKey(lookupCtx, kid)
		}
	}, []string{"RS256"}
}

// JWTMiddleware validates the bearer token and publishes the subject, roles
// and clinic claim for downstream middleware.
func JWTMiddleware(cfg JWTConfig, logger zerolog.Logger) echo.MiddlewareFunc {
	keyFunc, methods := cfg.keyFunc(logger)

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(tokenStr), claims, keyFunc(c.Request().Context()))
			if err != nil || !token.Valid {
				logger.Debug().Err(err).Msg("token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			setIdentity(c, claims.Subject, claims.Roles, claims.ClinicID)
			return next(c)
		}
	}
}

// DevAuthMiddleware validates a bearer token when one is sent and otherwise
// injects an admin identity. The clinic is then resolved by the clinic
// middleware's development fallback.
func DevAuthMiddleware(cfg JWTConfig, logger zerolog.Logger) echo.MiddlewareFunc {
	jwtMW := JWTMiddleware(cfg, logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		validated := jwtMW(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" && len(cfg.SigningKey) > 0 {
				return validated(c)
			}
			setIdentity(c, "dev-user", []string{RoleAdmin}, "")
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, subject string, roles []string, clinicID string) {
	if clinicID != "" {
		c.Set("jwt_clinic_id", clinicID)
	}
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, UserIDKey, subject)
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	c.SetRequest(c.Request().WithContext(ctx))
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
