// internal/app/service/identitysvc/identitysvc.go
package identitysvc

import (
	"context"
	"errors"
	"time"

	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/inputval"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AutoAccepter is the invitation hook fired when an email is verified.
type AutoAccepter interface {
	AutoAcceptForEmail(ctx context.Context, userID primitive.ObjectID, email string) (int, error)
}

// Service is the local credential glue around the external identity
// boundary: register, login, and the email-verification hook that fires
// invitation auto-accept.
type Service struct {
	users      *userstore.Store
	autoAccept AutoAccepter
	logger     *zap.Logger
}

func New(users *userstore.Store, autoAccept AutoAccepter, logger *zap.Logger) *Service {
	return &Service{users: users, autoAccept: autoAccept, logger: logger}
}

// Register creates a local account. The shared password policy is enforced
// here, never merely trusted from the client.
func (s *Service) Register(ctx context.Context, email, password string) (models.User, error) {
	email = inputval.NormalizeEmail(email)
	if !inputval.IsValidEmail(email) {
		return models.User{}, apperr.InvalidInput("invalid email address")
	}
	if problem := inputval.ValidatePassword(password); problem != "" {
		return models.User{}, apperr.InvalidInput(problem)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.Internal("hash password", err)
	}

	u, err := s.users.Create(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return models.User{}, apperr.Conflict("an account with this email already exists")
		}
		return models.User{}, apperr.Internal("create user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

// Login verifies email + password. Failures are deliberately
// indistinguishable (unknown email vs wrong password).
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	email = inputval.NormalizeEmail(email)
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return models.User{}, apperr.Internal("load user", err)
	}
	if u == nil || u.IsDeleted() || u.PasswordHash == "" {
		return models.User{}, apperr.NotAuthenticated("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, apperr.NotAuthenticated("invalid email or password")
	}
	return *u, nil
}

// GetUser loads a live account by id.
func (s *Service) GetUser(ctx context.Context, userID primitive.ObjectID) (models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, apperr.Internal("load user", err)
	}
	if u == nil || u.IsDeleted() {
		return models.User{}, apperr.NotFound("user not found")
	}
	return *u, nil
}

// MarkEmailVerified stamps the verification time and accepts every pending
// invitation addressed to the email. Auto-accept failure never fails the
// verification itself.
func (s *Service) MarkEmailVerified(ctx context.Context, userID primitive.ObjectID) (int, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("load user", err)
	}
	if u == nil || u.IsDeleted() || u.Email == "" {
		return 0, apperr.NotFound("user not found")
	}

	if err := s.users.MarkEmailVerified(ctx, userID, time.Now().UTC()); err != nil {
		return 0, apperr.Internal("mark email verified", err)
	}

	accepted, err := s.autoAccept.AutoAcceptForEmail(ctx, userID, u.Email)
	if err != nil {
		s.logger.Warn("auto-accept after verification failed",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return 0, nil
	}
	return accepted, nil
}
