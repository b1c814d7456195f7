package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"plantstock/internal/core/apperror"
	appctx "plantstock/internal/core/context"
)

const (
	HeaderOrgID = "X-Org-ID"
	HeaderActor = "X-Actor"
)

// IdentityConfig configures identity resolution.
type IdentityConfig struct {
	// JWTSecret verifies bearer tokens when present. Empty disables token
	// parsing and only plain headers are accepted.
	JWTSecret string
}

// identityClaims are the token claims this service reads. Authentication
// happens upstream; the token is only a transport for org scope and actor
// name.
type identityClaims struct {
	jwt.RegisteredClaims

	Org  string `json:"org"`
	Name string `json:"name"`
}

// Identity middleware resolves the caller's organization scope and actor name
// and stores them on the request context. A bearer token takes precedence;
// without one the X-Org-ID and X-Actor headers are used as-is.
//
// Requests without a resolvable organization are rejected: every query in the
// storage layer is org-scoped and an empty scope would match nothing.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := resolveIdentity(c, cfg)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		if ident.OrgID == "" {
			_ = c.Error(apperror.NewUnauthorized("organization scope is required"))
			c.Abort()
			return
		}

		ctx := appctx.WithIdentity(c.Request.Context(), ident)
		c.Request = c.Request.WithContext(ctx)

		c.Set("org_id", ident.OrgID)
		c.Set("actor", ident.Actor)

		c.Next()
	}
}

func resolveIdentity(c *gin.Context, cfg IdentityConfig) (*appctx.Identity, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && cfg.JWTSecret != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return nil, apperror.NewUnauthorized("invalid authorization header format")
		}

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return nil, apperror.NewUnauthorized("invalid token")
		}

		actor := claims.Name
		if actor == "" {
			actor = claims.Subject
		}
		return &appctx.Identity{OrgID: claims.Org, Actor: actor}, nil
	}

	return &appctx.Identity{
		OrgID: c.GetHeader(HeaderOrgID),
		Actor: c.GetHeader(HeaderActor),
	}, nil
}
