// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"fmt"

	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipSource looks up the single membership row for (group, user).
// A missing row is reported as (nil, nil) so the engine can fail closed
// without treating absence as an infrastructure error.
type MembershipSource interface {
	Membership(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error)
}

// CheckResult reports the outcome of a permission check. When Allowed is
// false, Reason explains why; Membership is set whenever a row exists, even
// on denial, so callers can log the offending role.
type CheckResult struct {
	Allowed    bool
	Membership *models.GroupMembership
	Reason     string
}

// Check looks up the caller's membership for the group and verifies the role
// is in requiredRoles. It fails closed: no row, a removed row outside the
// allow-list, or any role not listed all yield Allowed=false. The lookup is
// the only I/O; Check itself has no side effects and is safe on read paths.
func Check(ctx context.Context, src MembershipSource, userID, groupID primitive.ObjectID, requiredRoles ...Role) (CheckResult, error) {
	m, err := src.Membership(ctx, groupID, userID)
	if err != nil {
		return CheckResult{}, err
	}
	if m == nil {
		return CheckResult{Reason: "not a member of this group"}, nil
	}
	role := Role(m.Role)
	for _, want := range requiredRoles {
		if role == want {
			return CheckResult{Allowed: true, Membership: m}, nil
		}
	}
	return CheckResult{
		Membership: m,
		Reason:     fmt.Sprintf("requires one of: %s", joinRoles(requiredRoles)),
	}, nil
}

// CheckAction is Check with the allow-list taken from the action table.
func CheckAction(ctx context.Context, src MembershipSource, userID, groupID primitive.ObjectID, action Action) (CheckResult, error) {
	return Check(ctx, src, userID, groupID, AllowedRoles(action)...)
}

func joinRoles(roles []Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += ", "
		}
		out += string(r)
	}
	return out
}
