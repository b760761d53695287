package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/snipstash/snipstash-back/internal/apperror"
	"github.com/snipstash/snipstash-back/internal/config"
	"github.com/snipstash/snipstash-back/internal/db"
)

const RoleUser = "user"

type (
	// Identity is the authenticated caller every scoped operation takes as
	// its first parameter. There is no ambient current-user state anywhere.
	Identity struct {
		ID       uint64
		Name     string
		Email    string
		Verified bool
		Role     string
	}

	Claims struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
		jwt.RegisteredClaims
	}

	Resolver struct {
		secret []byte
		ttl    time.Duration
	}
)

func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		secret: []byte(cfg.JWTSecret),
		ttl:    time.Duration(cfg.JWTTTLHours) * time.Hour,
	}
}

// Issue signs a credential for the given user. The claims carry everything
// Resolve needs, so resolving never touches storage.
func (r *Resolver) Issue(user *db.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:     user.Name,
		Email:    user.Email,
		Verified: user.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Resolve turns an inbound credential into an authenticated identity or one
// of the identity failure kinds. It is a pure function of the credential.
func (r *Resolver) Resolve(credential string) (*Identity, error) {
	if credential == "" {
		return nil, apperror.Unauthorized("missing credential")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Expired("credential expired")
		}
		return nil, apperror.InvalidCredential("malformed or invalid credential")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperror.InvalidCredential("malformed subject claim")
	}

	return &Identity{
		ID:       id,
		Name:     claims.Name,
		Email:    claims.Email,
		Verified: claims.Verified,
		Role:     RoleUser,
	}, nil
}

// RequireRole is reserved for future capabilities; every identity issued
// today carries RoleUser and has access to its own resources only.
func (r *Resolver) RequireRole(identity *Identity, role string) error {
	if identity.Role != role {
		return apperror.Forbidden("insufficient capability")
	}
	return nil
}
