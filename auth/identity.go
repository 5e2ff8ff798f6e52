// Package auth resolves the caller behind a request and decides whether
// the caller may reach a given API surface.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a resolved caller.
type Identity struct {
	UserID      string                 `json:"sub"`
	Email       string                 `json:"email,omitempty"`
	AppMetadata map[string]interface{} `json:"app_metadata,omitempty"`
}

// Claims are the bearer token claims issued by the identity provider.
type Claims struct {
	Email        string                 `json:"email,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Resolver turns request credentials into an Identity.
type Resolver struct {
	secret []byte
	parser *jwt.Parser
}

func NewResolver(secret string) *Resolver {
	return &Resolver{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Resolve prefers the identity injected by the hosting platform and falls
// back to the bearer token. It returns nil when neither yields a subject.
func (r *Resolver) Resolve(platformContext, authorization string) *Identity {
	if id := r.FromPlatformContext(platformContext); id != nil {
		return id
	}
	id, err := r.FromBearer(authorization)
	if err != nil {
		return nil
	}
	return id
}

// FromPlatformContext decodes the base64 JSON client context a serverless
// platform attaches after it has verified the user: {"user": {"sub": ...}}.
// It must only be trusted behind that platform.
func (r *Resolver) FromPlatformContext(encoded string) *Identity {
	if encoded == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil
		}
	}
	var ctx struct {
		User *Identity `json:"user"`
	}
	if err := json.Unmarshal(raw, &ctx); err != nil || ctx.User == nil || ctx.User.UserID == "" {
		return nil
	}
	return ctx.User
}

var (
	ErrNoCredential = errors.New("no bearer credential")
	ErrNoSubject    = errors.New("token has no subject")
)

// FromBearer verifies an "Authorization: Bearer <jwt>" value.
// Signature and expiry are both required.
func (r *Resolver) FromBearer(authorization string) (*Identity, error) {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, ErrNoCredential
	}

	claims := &Claims{}
	_, err := r.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	return &Identity{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AppMetadata: claims.AppMetadata,
	}, nil
}
