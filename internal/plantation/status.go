package plantation

import (
	"strings"
	"time"
)

// Kind discriminates the two plantation record types.
type Kind string

// Plantation kinds.
const (
	KindIndividual Kind = "individual"
	KindBlock      Kind = "block"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindIndividual, KindBlock}

// ParseKind accepts "individual" or "block" (case-insensitive).
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIndividual:
		return KindIndividual, true
	case KindBlock:
		return KindBlock, true
	}
	return "", false
}

// Status is the verification lifecycle state.
type Status string

// Verification states.
const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Roles allowed to change verification status.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
	RoleVerifier   = "verifier"
)

// CanVerify reports whether role may run a verification transition.
func CanVerify(role string) bool {
	switch role {
	case RoleAdmin, RoleSuperAdmin, RoleVerifier:
		return true
	}
	return false
}

// IsAdmin reports whether role has administrative rights.
func IsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// Verify applies a verification action to rec and returns the verification
// timestamp. Every status may be re-entered; verifier, comments and timestamp
// are always overwritten. When in.Version is set it must match the stored
// version.
func (rec *Record) Verify(in VerifyInput, verifier string, now time.Time) (time.Time, error) {
	if !in.Status.Valid() {
		return time.Time{}, Validation("invalid verification status", map[string]any{"status": in.Status})
	}
	if in.Version != nil && *in.Version != rec.Version {
		return time.Time{}, &Error{
			Code:    CodeConflict,
			Message: "record was modified by another request",
			Details: map[string]any{"expectedVersion": *in.Version, "currentVersion": rec.Version},
		}
	}

	at := now.UTC()
	rec.Status = in.Status
	rec.VerifiedBy = verifier
	rec.VerificationComments = in.Comments
	rec.VerificationDate = &at
	rec.UpdatedAt = at
	rec.Version++
	return at, nil
}
