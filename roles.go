package auth

// UserRole is the role claim the backend attaches to a principal.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleManager     UserRole = "MANAGER"
	RoleSchoolNurse UserRole = "SCHOOLNURSE"
	RoleParent      UserRole = "PARENT"
)

// ParseRole normalizes a raw role string into a UserRole.
func ParseRole(raw string) (UserRole, bool) {
	role := UserRole(raw)
	if role.IsValid() {
		return role, true
	}
	return "", false
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSchoolNurse, RoleParent:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role belongs to portal staff rather than a
// guardian account.
func (r UserRole) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSchoolNurse:
		return true
	default:
		return false
	}
}

// CanUseOTP reports whether this role may authenticate through the
// phone-based OTP flow. Only guardians log in by phone.
func (r UserRole) CanUseOTP() bool {
	return r == RoleParent
}

// CanUsePassword reports whether this role may authenticate with
// username/password or the OAuth redirect path.
func (r UserRole) CanUsePassword() bool {
	return r.IsStaff()
}

// LandingRoute returns the dashboard route the portal sends this role to
// after login.
func (r UserRole) LandingRoute() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleManager:
		return "/manager-dashboard"
	case RoleSchoolNurse:
		return "/nurse-dashboard"
	case RoleParent:
		return "/parent-dashboard"
	default:
		return "/"
	}
}
