package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	obscontext "github.com/smallbiznis/cicilan/internal/observability/context"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	contextActorKey = "actor"
	bearerPrefix    = "Bearer "
	tokenIssuer     = "cicilan"
)

var errInvalidToken = errors.New("invalid_token")

// Claims is the bearer token payload. Subject carries the snowflake id of the
// admin or customer.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Actor struct {
	Role string
	ID   snowflake.ID
}

// Subject is the casbin subject for the actor.
func (a Actor) Subject() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID.String())
}

// IssueToken signs a token for role and id valid for ttl.
func IssueToken(secret string, role string, id snowflake.ID, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errInvalidToken
	}
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret string, raw string) (Actor, error) {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(raw) == "" {
		return Actor{}, errInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Actor{}, errInvalidToken
	}

	id, err := snowflake.ParseString(strings.TrimSpace(claims.Subject))
	if err != nil || id == 0 {
		return Actor{}, errInvalidToken
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role != RoleAdmin && role != RoleCustomer {
		return Actor{}, errInvalidToken
	}
	return Actor{Role: role, ID: id}, nil
}

// AuthRequired accepts a bearer token for the given role and puts the actor
// on the request context for audit and logging.
func (s *Server) AuthRequired(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := parseToken(s.cfg.AuthJWTSecret, strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if actor.Role != role {
			AbortWithError(c, ErrForbidden)
			return
		}

		ctx := c.Request.Context()
		ctx = auditcontext.WithActor(ctx, actor.Role, actor.ID.String())
		ctx = obscontext.WithActor(ctx, actor.Role, actor.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}

// authorize checks the casbin policy for the authenticated actor.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.Subject(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
