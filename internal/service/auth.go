package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipstash/snipstash-back/internal/apperror"
	"github.com/snipstash/snipstash-back/internal/auth"
	"github.com/snipstash/snipstash-back/internal/db"
)

const verificationTTL = 10 * time.Minute

type Auth struct {
	db       *gorm.DB
	resolver *auth.Resolver
	logger   *zap.SugaredLogger
}

func NewAuth(gdb *gorm.DB, resolver *auth.Resolver, l *zap.SugaredLogger) *Auth {
	return &Auth{
		db:       gdb,
		resolver: resolver,
		logger:   l,
	}
}

func (s *Auth) Register(name, email, pass string) (*db.User, string, error) {
	hash, err := auth.HashPassword(pass)
	if err != nil {
		return nil, "", errors.Wrap(err, "hash password")
	}

	user := db.User{
		Name:     name,
		Email:    email,
		Password: hash,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", apperror.Conflict("user with this email already exists")
		}
		return nil, "", errors.Wrap(err, "create user")
	}

	token, err := s.resolver.Issue(&user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Infow("user registered", "id", user.ID)
	return &user, token, nil
}

// Login answers the same failure for an unknown email and a wrong password so
// callers cannot probe which emails exist.
func (s *Auth) Login(email, pass string) (*db.User, string, error) {
	user := db.User{}
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperror.InvalidCredential("invalid email or password")
		}
		return nil, "", errors.Wrap(err, "find user")
	}

	if err := auth.CheckPassword(user.Password, pass); err != nil {
		return nil, "", apperror.InvalidCredential("invalid email or password")
	}

	token, err := s.resolver.Issue(&user)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

func (s *Auth) Me(userID uint64) (*db.User, error) {
	user := db.User{}
	err := s.db.First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &user, nil
}

// RequestVerification stores a short-lived verification code for the user's
// email. Delivery is out of scope; the code is logged for operators.
func (s *Auth) RequestVerification(email string) error {
	user := db.User{}
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("user", 0)
		}
		return errors.Wrap(err, "find user")
	}

	token := db.VerificationToken{
		Email:     email,
		Code:      uuid.New().String(),
		ExpiresAt: time.Now().Add(verificationTTL),
	}
	if err := s.db.Create(&token).Error; err != nil {
		return errors.Wrap(err, "create verification token")
	}

	s.logger.Infow("verification code issued", "user", user.ID, "code", token.Code)
	return nil
}

// VerifyEmail consumes a pending code and flips the user's verified flag.
func (s *Auth) VerifyEmail(email, code string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		token := db.VerificationToken{}
		err := tx.Where("email = ? AND code = ? AND used = ? AND expires_at > ?",
			email, code, false, time.Now()).
			First(&token).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.InvalidArgument("code", "invalid or expired verification code")
			}
			return errors.Wrap(err, "find verification token")
		}

		if err := tx.Model(&token).Update("used", true).Error; err != nil {
			return errors.Wrap(err, "consume verification token")
		}
		res := tx.Model(&db.User{}).Where("email = ?", email).Update("email_verified", true)
		if res.Error != nil {
			return errors.Wrap(res.Error, "mark user verified")
		}
		return nil
	})
}
