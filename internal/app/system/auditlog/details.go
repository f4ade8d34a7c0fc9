// internal/app/system/auditlog/details.go
package auditlog

import "encoding/json"

// Details is the tagged union of per-action audit payloads. Each action in
// the closed enum has exactly one payload shape; the JSON encoding of that
// shape is what lands in the audit document's details field.
type Details interface {
	auditDetails()
}

// MemberInvitedDetails accompanies member_invited and carries the
// normalized invitee email.
type MemberInvitedDetails struct {
	Email string `json:"email"`
}

// MemberJoinedDetails accompanies member_joined. Role is the role granted on
// join (always viewer for invitation accepts).
type MemberJoinedDetails struct {
	Role      string `json:"role"`
	ViaInvite bool   `json:"viaInvite"`
}

// MemberLeftDetails accompanies member_left.
type MemberLeftDetails struct {
	PreviousRole string `json:"previousRole"`
}

// RoleChangedDetails accompanies both role_changed and member_removed
// (removal is a role change to "removed"; the action name differs, the
// payload does not).
type RoleChangedDetails struct {
	PreviousRole string `json:"previousRole"`
	NewRole      string `json:"newRole"`
}

// InviteRevokedDetails accompanies invite_revoked.
type InviteRevokedDetails struct {
	Email string `json:"email"`
}

// GroupSoftDeletedDetails accompanies group_soft_deleted. MembersRemoved is
// the number of membership rows flipped to "removed" by the cascade.
type GroupSoftDeletedDetails struct {
	MembersRemoved int64 `json:"membersRemoved"`
}

// GroupRestoredDetails accompanies group_restored. NewAdmin identifies the
// nominated member promoted to admin; the other rows stay "removed" on
// purpose.
type GroupRestoredDetails struct {
	NewAdmin string `json:"newAdmin"`
}

func (MemberInvitedDetails) auditDetails()    {}
func (MemberJoinedDetails) auditDetails()     {}
func (MemberLeftDetails) auditDetails()       {}
func (RoleChangedDetails) auditDetails()      {}
func (InviteRevokedDetails) auditDetails()    {}
func (GroupSoftDeletedDetails) auditDetails() {}
func (GroupRestoredDetails) auditDetails()    {}

// encodeDetails serializes a payload to the JSON blob stored on the entry.
// A nil payload yields an empty string (field omitted).
func encodeDetails(d Details) (string, error) {
	if d == nil {
		return "", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
