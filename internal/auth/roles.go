package auth

// Role is the access tier carried in a token's claims. The ledger uses
// three tiers: viewers read accounts, vouchers and reports; operators
// additionally post and reverse vouchers and maintain master data;
// admins close financial years and export reports.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// NormalizeRole maps a claim string to a known role. Unknown strings
// are rejected rather than defaulted.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleOperator, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast reports whether role grants everything required does.
// Tiers are strictly ordered: viewer < operator < admin.
func RoleAtLeast(role Role, required Role) bool {
	return rank(role) >= rank(required)
}

func rank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleOperator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
