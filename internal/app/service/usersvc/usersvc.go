// internal/app/service/usersvc/usersvc.go
package usersvc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/corix/internal/app/store/audit"
	groupstore "github.com/dalemusser/corix/internal/app/store/groups"
	invitestore "github.com/dalemusser/corix/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/app/system/inputval"
	"github.com/dalemusser/corix/internal/app/system/txn"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service owns the user lifecycle: self-service soft delete with PII scrub,
// super-admin hard delete with its cascade, and the profile mutations.
type Service struct {
	client      *mongo.Client
	users       *userstore.Store
	groups      *groupstore.Store
	memberships *membershipstore.Store
	invitations *invitestore.Store
	auditStore  *audit.Store
	logger      *zap.Logger
}

func New(
	client *mongo.Client,
	users *userstore.Store,
	groups *groupstore.Store,
	memberships *membershipstore.Store,
	invitations *invitestore.Store,
	auditStore *audit.Store,
	logger *zap.Logger,
) *Service {
	return &Service{
		client:      client,
		users:       users,
		groups:      groups,
		memberships: memberships,
		invitations: invitations,
		auditStore:  auditStore,
		logger:      logger,
	}
}

// DeleteCheck is the result of CanDeleteAccount: whether deleteAccount
// would succeed, and the names of the groups blocking it.
type DeleteCheck struct {
	CanDelete      bool     `json:"can_delete"`
	BlockingGroups []string `json:"blocking_groups,omitempty"`
}

// CanDeleteAccount precomputes the sole-admin guard for the UI. It shares
// soleAdminBlockingGroups with DeleteAccount so the answer cannot drift
// from what the mutation will actually do.
func (s *Service) CanDeleteAccount(ctx context.Context, actorID primitive.ObjectID) (DeleteCheck, error) {
	blocking, err := s.soleAdminBlockingGroups(ctx, actorID)
	if err != nil {
		return DeleteCheck{}, apperr.Internal("check blocking groups", err)
	}
	return DeleteCheck{CanDelete: len(blocking) == 0, BlockingGroups: blocking}, nil
}

// DeleteAccount soft-deletes the caller's own account. Two independent
// guards, re-verified inside the transaction: the caller must not be the
// sole admin of any group, and must hold no active membership anywhere
// (they have to leave every group first). On success the email and TOTP
// fields are scrubbed and a "Deleted User XXXXXX" placeholder is stamped
// for display. Returns the placeholder.
func (s *Service) DeleteAccount(ctx context.Context, actorID primitive.ObjectID) (string, error) {
	placeholder := deletedUserPlaceholder()

	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		blocking, err := s.soleAdminBlockingGroups(ctx, actorID)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			return apperr.InvariantViolation(
				"you are the sole admin of: " + strings.Join(blocking, ", ") +
					"; transfer admin or delete those groups first")
		}

		active, err := s.memberships.ListActiveByUser(ctx, actorID)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return apperr.Conflict("leave all groups before deleting your account")
		}

		if err := s.users.SoftDelete(ctx, actorID, placeholder, time.Now().UTC()); err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				return apperr.Conflict("account is already deleted")
			}
			return err
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return "", err
		}
		return "", apperr.Internal("delete account", err)
	}

	s.logger.Info("account soft deleted",
		zap.String("user_id", actorID.Hex()),
		zap.String("placeholder", placeholder))
	return placeholder, nil
}

// HardDelete irreversibly erases a user. Super-admin only; self-deletion is
// refused. Cascade: the target's memberships, invitations they sent, and
// audit entries they performed; messages survive and render as
// "Unknown User" because no placeholder is left behind.
func (s *Service) HardDelete(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return apperr.Internal("load actor", err)
	}
	if actor == nil || actor.IsDeleted() || !actor.IsSuperAdmin {
		return apperr.PermissionDenied("super-admin privilege required")
	}
	if actorID == targetID {
		return apperr.InvalidInput("cannot hard delete your own account")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("load target", err)
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if _, err := s.memberships.DeleteByUser(ctx, targetID); err != nil {
			return err
		}
		if _, err := s.invitations.DeleteByInviter(ctx, targetID); err != nil {
			return err
		}
		if _, err := s.auditStore.DeleteByActor(ctx, targetID); err != nil {
			return err
		}
		return s.users.Delete(ctx, targetID)
	})
	if err != nil {
		return apperr.Internal("hard delete user", err)
	}

	s.logger.Info("user hard deleted",
		zap.String("target_id", targetID.Hex()),
		zap.String("actor_id", actorID.Hex()))
	return nil
}

// UpdateEmail changes the caller's email. The new address must be unused;
// verification status is reset so the new address has to be verified again.
func (s *Service) UpdateEmail(ctx context.Context, actorID primitive.ObjectID, email string) error {
	email = inputval.NormalizeEmail(email)
	if !inputval.IsValidEmail(email) {
		return apperr.InvalidInput("invalid email address")
	}
	if err := s.users.UpdateEmail(ctx, actorID, email); err != nil {
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			return apperr.Conflict("email address is already in use")
		case errors.Is(err, userstore.ErrNotFound):
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("update email", err)
	}
	return nil
}

// ChangePassword re-validates the shared password policy and rehashes. The
// current password must verify first.
func (s *Service) ChangePassword(ctx context.Context, actorID primitive.ObjectID, currentPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("load user", err)
	}
	if u.PasswordHash == "" {
		return apperr.Conflict("account has no password set")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return apperr.PermissionDenied("current password is incorrect")
	}
	if problem := inputval.ValidatePassword(newPassword); problem != "" {
		return apperr.InvalidInput(problem)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	if err := s.users.SetPasswordHash(ctx, actorID, string(hash)); err != nil {
		return apperr.Internal("store password", err)
	}
	return nil
}

// soleAdminBlockingGroups returns the names of live groups where the user
// is an admin and no other admin exists. Both CanDeleteAccount and
// DeleteAccount go through here.
func (s *Service) soleAdminBlockingGroups(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	adminMems, err := s.memberships.ListByUserRole(ctx, userID, authz.RoleAdmin)
	if err != nil {
		return nil, err
	}

	var blocking []string
	for _, m := range adminMems {
		admins, err := s.memberships.CountAdmins(ctx, m.GroupID)
		if err != nil {
			return nil, err
		}
		if admins > 1 {
			continue
		}
		group, err := s.groups.GetByID(ctx, m.GroupID)
		if err != nil {
			if errors.Is(err, groupstore.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if group.IsDeleted() {
			continue
		}
		blocking = append(blocking, group.Name)
	}
	return blocking, nil
}

// deletedUserPlaceholder builds the display tag stamped on scrub, e.g.
// "Deleted User 3FA2B1".
func deletedUserPlaceholder() string {
	tag := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "Deleted User " + tag
}
