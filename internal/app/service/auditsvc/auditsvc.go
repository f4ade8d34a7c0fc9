// internal/app/service/auditsvc/auditsvc.go
package auditsvc

import (
	"context"

	"github.com/dalemusser/corix/internal/app/store/audit"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/app/system/limits"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service is the read side of the audit log.
type Service struct {
	auditStore  *audit.Store
	memberships *membershipstore.Store
	users       *userstore.Store
}

func New(auditStore *audit.Store, memberships *membershipstore.Store, users *userstore.Store) *Service {
	return &Service{auditStore: auditStore, memberships: memberships, users: users}
}

// EntryView is one audit entry enriched with display strings for the actor
// and target (email → scrub placeholder → "Unknown User").
type EntryView struct {
	Entry         models.AuditLog `json:"entry"`
	ActionLabel   string          `json:"action_label"`
	ActorDisplay  string          `json:"actor_display"`
	TargetDisplay string          `json:"target_display,omitempty"`
}

// ListForGroup returns the newest entries for a group, capped at 100.
// Admin only.
func (s *Service) ListForGroup(ctx context.Context, actorID, groupID primitive.ObjectID) ([]EntryView, error) {
	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionViewAudit)
	if err != nil {
		return nil, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return nil, apperr.PermissionDenied(res.Reason)
	}

	entries, err := s.auditStore.ListByGroup(ctx, groupID, limits.AuditLogPageSize)
	if err != nil {
		return nil, apperr.Internal("list audit entries", err)
	}

	// One lookup per distinct user across the page.
	displays := map[primitive.ObjectID]string{}
	resolve := func(id primitive.ObjectID) (string, error) {
		if d, ok := displays[id]; ok {
			return d, nil
		}
		d := models.UnknownUserDisplay
		if u, err := s.users.FindByID(ctx, id); err != nil {
			return "", err
		} else if u != nil {
			d = u.DisplayName()
		}
		displays[id] = d
		return d, nil
	}

	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		actorDisplay, err := resolve(e.ActorID)
		if err != nil {
			return nil, apperr.Internal("resolve actor display", err)
		}
		view := EntryView{
			Entry:        e,
			ActionLabel:  audit.ActionLabels[e.Action],
			ActorDisplay: actorDisplay,
		}
		if e.TargetID != nil {
			targetDisplay, err := resolve(*e.TargetID)
			if err != nil {
				return nil, apperr.Internal("resolve target display", err)
			}
			view.TargetDisplay = targetDisplay
		}
		out = append(out, view)
	}
	return out, nil
}
