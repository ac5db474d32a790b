package shared

// Code identifies one capability. Codes are flat and compared byte-for-byte;
// there is no wildcard or hierarchy semantics.
type Code string

// Core platform permissions.
const (
	PermCaseViewAll Code = "CASE_VIEW_ALL"
	PermCaseViewOwn Code = "CASE_VIEW_OWN"
	PermCaseEdit    Code = "CASE_EDIT"

	PermClientView Code = "CLIENT_VIEW"
	PermClientEdit Code = "CLIENT_EDIT"

	PermFinanceView Code = "FINANCE_VIEW"
	PermFinanceEdit Code = "FINANCE_EDIT"

	PermArbitrationView Code = "ARBITRATION_VIEW"
	PermArbitrationEdit Code = "ARBITRATION_EDIT"

	PermUserAdmin Code = "USER_ADMIN"
	PermAuditView Code = "AUDIT_VIEW"
)

// CoreScopes lists all permissions known to the core platform.
func CoreScopes() []Code {
	return []Code{
		PermCaseViewAll,
		PermCaseViewOwn,
		PermCaseEdit,
		PermClientView,
		PermClientEdit,
		PermFinanceView,
		PermFinanceEdit,
		PermArbitrationView,
		PermArbitrationEdit,
		PermUserAdmin,
		PermAuditView,
	}
}
