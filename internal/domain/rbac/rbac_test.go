package rbac

import "testing"

func TestHighestRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  string
	}{
		{"пустой набор", nil, ""},
		{"только readonly", []string{RoleReadonly}, RoleReadonly},
		{"admin побеждает", []string{RoleReadonly, RoleAdmin, RoleReadonly}, RoleAdmin},
		{"неизвестные роли игнорируются", []string{"offline_access", "uma_authorization"}, ""},
		{"смесь с неизвестными", []string{"offline_access", RoleReadonly}, RoleReadonly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HighestRole(tt.roles); got != tt.want {
				t.Errorf("HighestRole(%v) = %q, хотели %q", tt.roles, got, tt.want)
			}
		})
	}
}

func TestMapGroupsToRole(t *testing.T) {
	admins := []string{"tier2-admins"}
	viewers := []string{"tier2-viewers", "helpdesk"}

	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{"нет групп", nil, ""},
		{"группа просмотра", []string{"helpdesk"}, RoleReadonly},
		{"группа администраторов", []string{"tier2-admins"}, RoleAdmin},
		{"обе группы", []string{"tier2-viewers", "tier2-admins"}, RoleAdmin},
		{"посторонние группы", []string{"Domain Users"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapGroupsToRole(tt.groups, admins, viewers); got != tt.want {
				t.Errorf("MapGroupsToRole(%v) = %q, хотели %q", tt.groups, got, tt.want)
			}
		})
	}
}

func TestResolveRole(t *testing.T) {
	admins := []string{"tier2-admins"}
	viewers := []string{"tier2-viewers"}

	if got := ResolveRole([]string{RoleReadonly}, []string{"tier2-admins"}, admins, viewers); got != RoleAdmin {
		t.Errorf("группа admin должна повышать realm-роль readonly, получено %q", got)
	}
	if got := ResolveRole([]string{RoleAdmin}, []string{"tier2-viewers"}, admins, viewers); got != RoleAdmin {
		t.Errorf("группа readonly не должна понижать realm-роль admin, получено %q", got)
	}
	if got := ResolveRole(nil, nil, admins, viewers); got != "" {
		t.Errorf("без ролей и групп ожидается пустая роль, получено %q", got)
	}
}

func TestAllows(t *testing.T) {
	tests := []struct {
		role, required string
		want           bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleReadonly, true},
		{RoleReadonly, RoleReadonly, true},
		{RoleReadonly, RoleAdmin, false},
		{"", RoleReadonly, false},
		{"superuser", RoleReadonly, false},
	}
	for _, tt := range tests {
		if got := Allows(tt.role, tt.required); got != tt.want {
			t.Errorf("Allows(%q, %q) = %v, хотели %v", tt.role, tt.required, got, tt.want)
		}
	}
}
