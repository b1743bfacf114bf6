package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role, minimum string
		want          bool
	}{
		{RoleAdmin, RoleManager, true},
		{RoleManager, RoleManager, true},
		{RoleManager, RoleAdmin, false},
		{RoleUser, RoleUser, true},
		{RoleUser, RoleManager, false},
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RoleAtLeast(tt.role, tt.minimum), "RoleAtLeast(%q, %q)", tt.role, tt.minimum)
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleManager))
	assert.False(t, ValidRole("owner"))
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("1234567"))
	assert.NoError(t, ValidatePassword("12345678"))
}
