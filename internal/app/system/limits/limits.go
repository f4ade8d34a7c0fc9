// internal/app/system/limits/limits.go
package limits

// Domain size limits shared by validation and the read paths.
const (
	// MaxGroupNameLen caps group names (create and rename).
	MaxGroupNameLen = 100

	// MaxMessageLen caps message content after trimming.
	MaxMessageLen = 500

	// MinPasswordLen is the floor of the shared password policy.
	MinPasswordLen = 12

	// AuditLogPageSize caps getGroupAuditLogs at the newest N entries.
	AuditLogPageSize = 100

	// DefaultMessagePageSize is the default limit for recent-message reads.
	DefaultMessagePageSize = 50
)
