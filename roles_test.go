package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/schoolmed/go-authclient"
)

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("SCHOOLNURSE")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleSchoolNurse, role)

	_, ok = auth.ParseRole("superuser")
	assert.False(t, ok)

	_, ok = auth.ParseRole("")
	assert.False(t, ok)
}

func TestLandingRoutes(t *testing.T) {
	assert.Equal(t, "/admin/dashboard", auth.RoleAdmin.LandingRoute())
	assert.Equal(t, "/manager-dashboard", auth.RoleManager.LandingRoute())
	assert.Equal(t, "/nurse-dashboard", auth.RoleSchoolNurse.LandingRoute())
	assert.Equal(t, "/parent-dashboard", auth.RoleParent.LandingRoute())
	assert.Equal(t, "/", auth.UserRole("nobody").LandingRoute())
}

func TestLoginMethodGates(t *testing.T) {
	assert.True(t, auth.RoleParent.CanUseOTP())
	assert.False(t, auth.RoleParent.CanUsePassword())

	for _, staff := range []auth.UserRole{auth.RoleAdmin, auth.RoleManager, auth.RoleSchoolNurse} {
		assert.False(t, staff.CanUseOTP(), "%s must not use the OTP flow", staff)
		assert.True(t, staff.CanUsePassword(), "%s must use password or oauth", staff)
		assert.True(t, staff.IsStaff())
	}

	assert.False(t, auth.RoleParent.IsStaff())
}
