// internal/app/service/invitesvc/invitesvc.go
package invitesvc

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/corix/internal/app/store/audit"
	groupstore "github.com/dalemusser/corix/internal/app/store/groups"
	invitestore "github.com/dalemusser/corix/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/auditlog"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/app/system/inputval"
	"github.com/dalemusser/corix/internal/app/system/mailer"
	"github.com/dalemusser/corix/internal/app/system/tasks"
	"github.com/dalemusser/corix/internal/app/system/txn"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EmailConfig carries what the invitation email template needs.
type EmailConfig struct {
	SiteName string
	BaseURL  string
}

// Service runs the invitation state machine: pending → accepted | revoked,
// one pending invitation per (group, email), auto-accept when an email is
// verified. The invitation email is queued after the transaction commits so
// a failing mail provider never rolls back the invitation.
type Service struct {
	client      *mongo.Client
	invitations *invitestore.Store
	memberships *membershipstore.Store
	groups      *groupstore.Store
	users       *userstore.Store
	auditLog    *auditlog.Logger
	mail        *mailer.Mailer
	runner      *tasks.Runner
	emailCfg    EmailConfig
	logger      *zap.Logger
}

func New(
	client *mongo.Client,
	invitations *invitestore.Store,
	memberships *membershipstore.Store,
	groups *groupstore.Store,
	users *userstore.Store,
	auditLog *auditlog.Logger,
	mail *mailer.Mailer,
	runner *tasks.Runner,
	emailCfg EmailConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		client:      client,
		invitations: invitations,
		memberships: memberships,
		groups:      groups,
		users:       users,
		auditLog:    auditLog,
		mail:        mail,
		runner:      runner,
		emailCfg:    emailCfg,
		logger:      logger,
	}
}

// Create invites an email into a group. Admin only. The email is normalized
// (lowercase, trimmed); inviting an existing active member or duplicating a
// pending invitation is a conflict. A prior accepted or revoked invitation
// for the same email does not block a fresh one; current membership is what
// gets re-checked.
func (s *Service) Create(ctx context.Context, actorID, groupID primitive.ObjectID, email string) (models.Invitation, error) {
	email = inputval.NormalizeEmail(email)
	if !inputval.IsInvitableEmail(email) {
		return models.Invitation{}, apperr.InvalidInput("invalid email address")
	}

	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionManageInvitations)
	if err != nil {
		return models.Invitation{}, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return models.Invitation{}, apperr.PermissionDenied(res.Reason)
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return models.Invitation{}, apperr.NotFound("group not found")
		}
		return models.Invitation{}, apperr.Internal("load group", err)
	}
	if group.IsDeleted() {
		return models.Invitation{}, apperr.NotFound("group not found")
	}

	var invitation models.Invitation
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		// Inside the transaction so a concurrent accept cannot slip a new
		// active membership past the check.
		if invitee, err := s.users.FindByEmail(ctx, email); err != nil {
			return err
		} else if invitee != nil {
			m, err := s.memberships.Membership(ctx, groupID, invitee.ID)
			if err != nil {
				return err
			}
			if m != nil && authz.IsActive(authz.Role(m.Role)) {
				return apperr.Conflict("user is already a member of the group")
			}
		}

		var err error
		invitation, err = s.invitations.Insert(ctx, groupID, email, actorID)
		if err != nil {
			if errors.Is(err, invitestore.ErrDuplicatePending) {
				return apperr.Conflict("a pending invitation for this email already exists")
			}
			return err
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID: groupID,
			ActorID: actorID,
			Action:  audit.ActionMemberInvited,
			Details: auditlog.MemberInvitedDetails{Email: email},
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return models.Invitation{}, err
		}
		return models.Invitation{}, apperr.Internal("create invitation", err)
	}

	s.queueInvitationEmail(ctx, invitation, group.Name, actorID)
	return invitation, nil
}

// queueInvitationEmail hands the send to the background runner. The
// invitation is already committed; delivery failure degrades to a log line.
func (s *Service) queueInvitationEmail(ctx context.Context, inv models.Invitation, groupName string, inviterID primitive.ObjectID) {
	inviterEmail := models.UnknownUserDisplay
	if inviter, err := s.users.FindByID(ctx, inviterID); err == nil && inviter != nil {
		inviterEmail = inviter.DisplayName()
	}

	email := mailer.BuildInvitationEmail(mailer.InvitationEmailData{
		SiteName:     s.emailCfg.SiteName,
		GroupName:    groupName,
		InviterEmail: inviterEmail,
		AcceptLink:   s.emailCfg.BaseURL + "/invitations/" + inv.ID.Hex(),
	})
	email.To = inv.Email

	invID := inv.ID.Hex()
	s.runner.Enqueue(tasks.Task{
		Name: "invitation-email",
		Run: func(ctx context.Context) error {
			method, err := s.mail.Send(email)
			if err != nil {
				return err
			}
			s.logger.Info("invitation email sent",
				zap.String("invitation_id", invID),
				zap.String("method", method))
			return nil
		},
	})
}

// Accept joins the caller to the invitation's group as a viewer. The
// caller's verified email must match the invitation email. A prior
// "removed" membership is resurrected rather than duplicated.
func (s *Service) Accept(ctx context.Context, actorID, invitationID primitive.ObjectID) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return apperr.Internal("load actor", err)
	}
	if actor == nil || actor.IsDeleted() {
		return apperr.NotAuthenticated("account not found")
	}
	if actor.EmailVerifiedAt == nil {
		return apperr.PermissionDenied("verify your email before accepting invitations")
	}
	return s.acceptOne(ctx, *actor, invitationID)
}

// acceptOne is the shared accept path for Accept and the auto-accept batch.
// It runs its own transaction.
func (s *Service) acceptOne(ctx context.Context, actor models.User, invitationID primitive.ObjectID) error {
	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		inv, err := s.invitations.GetByID(ctx, invitationID)
		if err != nil {
			if errors.Is(err, invitestore.ErrNotFound) {
				return apperr.NotFound("invitation not found")
			}
			return err
		}
		if inv.Status != models.InviteStatusPending {
			return apperr.Conflict("invitation is no longer pending")
		}
		if inputval.NormalizeEmail(actor.Email) != inv.Email {
			return apperr.PermissionDenied("invitation was sent to a different email address")
		}

		existing, err := s.memberships.Membership(ctx, inv.GroupID, actor.ID)
		if err != nil {
			return err
		}
		switch {
		case existing != nil && authz.IsActive(authz.Role(existing.Role)):
			return apperr.Conflict("you are already a member of this group")
		case existing != nil:
			// Resurrect the removed row as viewer.
			if err := s.memberships.UpdateRole(ctx, existing.ID, authz.RoleViewer, actor.ID); err != nil {
				return err
			}
		default:
			if _, err := s.memberships.Insert(ctx, inv.GroupID, actor.ID, authz.RoleViewer, actor.ID); err != nil {
				return err
			}
		}

		if err := s.invitations.MarkAccepted(ctx, inv.ID, actor.ID, time.Now().UTC()); err != nil {
			if errors.Is(err, invitestore.ErrNotPending) {
				return apperr.Conflict("invitation is no longer pending")
			}
			return err
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID:  inv.GroupID,
			ActorID:  actor.ID,
			TargetID: &actor.ID,
			Action:   audit.ActionMemberJoined,
			Details:  auditlog.MemberJoinedDetails{Role: string(authz.RoleViewer), ViaInvite: true},
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return err
		}
		return apperr.Internal("accept invitation", err)
	}
	return nil
}

// AutoAcceptForEmail accepts every pending invitation addressed to a
// freshly-verified email. Each invitation is its own transaction; one
// failure is logged and does not abort the siblings. Returns the number of
// invitations accepted.
func (s *Service) AutoAcceptForEmail(ctx context.Context, userID primitive.ObjectID, email string) (int, error) {
	email = inputval.NormalizeEmail(email)
	actor, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("load user", err)
	}
	if actor == nil {
		return 0, apperr.NotFound("user not found")
	}

	pending, err := s.invitations.ListPendingByEmail(ctx, email)
	if err != nil {
		return 0, apperr.Internal("list pending invitations", err)
	}

	accepted := 0
	for _, inv := range pending {
		if err := s.acceptOne(ctx, *actor, inv.ID); err != nil {
			s.logger.Warn("auto-accept failed for invitation",
				zap.String("invitation_id", inv.ID.Hex()),
				zap.String("group_id", inv.GroupID.Hex()),
				zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted > 0 {
		s.logger.Info("auto-accepted invitations",
			zap.String("user_id", userID.Hex()),
			zap.Int("count", accepted))
	}
	return accepted, nil
}

// Revoke cancels a pending invitation. Admin of the invitation's group
// only; revoking a non-pending invitation is always a conflict, never a
// silent no-op.
func (s *Service) Revoke(ctx context.Context, actorID, invitationID primitive.ObjectID) error {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, invitestore.ErrNotFound) {
			return apperr.NotFound("invitation not found")
		}
		return apperr.Internal("load invitation", err)
	}

	res, err := authz.CheckAction(ctx, s.memberships, actorID, inv.GroupID, authz.ActionManageInvitations)
	if err != nil {
		return apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return apperr.PermissionDenied(res.Reason)
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.invitations.MarkRevoked(ctx, invitationID); err != nil {
			if errors.Is(err, invitestore.ErrNotPending) {
				return apperr.Conflict("invitation is no longer pending")
			}
			return err
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID: inv.GroupID,
			ActorID: actorID,
			Action:  audit.ActionInviteRevoked,
			Details: auditlog.InviteRevokedDetails{Email: inv.Email},
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return err
		}
		return apperr.Internal("revoke invitation", err)
	}
	return nil
}

// GetPendingForGroup lists a group's pending invitations for the
// member-management screen. Admin only.
func (s *Service) GetPendingForGroup(ctx context.Context, actorID, groupID primitive.ObjectID) ([]models.Invitation, error) {
	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionManageInvitations)
	if err != nil {
		return nil, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return nil, apperr.PermissionDenied(res.Reason)
	}
	out, err := s.invitations.ListPendingByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("list invitations", err)
	}
	return out, nil
}

// InvitationWithGroup pairs an invitation with its group's name for
// display on the caller's pending-invitations screen.
type InvitationWithGroup struct {
	Invitation models.Invitation `json:"invitation"`
	GroupName  string            `json:"group_name"`
}

// GetMyPending lists pending invitations addressed to the caller's email.
func (s *Service) GetMyPending(ctx context.Context, actorID primitive.ObjectID) ([]InvitationWithGroup, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, apperr.Internal("load actor", err)
	}
	if actor == nil || actor.IsDeleted() || actor.Email == "" {
		return []InvitationWithGroup{}, nil
	}

	pending, err := s.invitations.ListPendingByEmail(ctx, inputval.NormalizeEmail(actor.Email))
	if err != nil {
		return nil, apperr.Internal("list invitations", err)
	}

	out := make([]InvitationWithGroup, 0, len(pending))
	for _, inv := range pending {
		name := ""
		if g, err := s.groups.GetByID(ctx, inv.GroupID); err == nil && !g.IsDeleted() {
			name = g.Name
		}
		out = append(out, InvitationWithGroup{Invitation: inv, GroupName: name})
	}
	return out, nil
}

// Get returns one invitation for an accept page. The caller must be the
// invitee (matching email) or an admin of the invitation's group.
func (s *Service) Get(ctx context.Context, actorID, invitationID primitive.ObjectID) (models.Invitation, error) {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, invitestore.ErrNotFound) {
			return models.Invitation{}, apperr.NotFound("invitation not found")
		}
		return models.Invitation{}, apperr.Internal("load invitation", err)
	}

	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return models.Invitation{}, apperr.Internal("load actor", err)
	}
	if actor != nil && inputval.NormalizeEmail(actor.Email) == inv.Email {
		return inv, nil
	}

	res, err := authz.CheckAction(ctx, s.memberships, actorID, inv.GroupID, authz.ActionManageInvitations)
	if err != nil {
		return models.Invitation{}, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return models.Invitation{}, apperr.PermissionDenied(res.Reason)
	}
	return inv, nil
}
