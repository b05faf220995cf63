// Пакет rbac — определение роли администратора Tier2 по данным JWT.
// Роль берётся из realm-ролей токена и из групп IdP; при нескольких
// совпадениях выбирается максимальная.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleReadonly = "readonly"
	RoleAdmin    = "admin"
)

var roleWeight = map[string]int{
	RoleReadonly: 1,
	RoleAdmin:    2,
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Неизвестные роли игнорируются; если допустимых нет — пустая строка.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if !IsValidRole(r) {
			continue
		}
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль по группам IdP.
// Если ни одна группа не совпала — возвращает пустую строку.
func MapGroupsToRole(groups []string, adminGroups, readonlyGroups []string) string {
	adminSet := toSet(adminGroups)
	readonlySet := toSet(readonlyGroups)

	var roles []string
	for _, g := range groups {
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if readonlySet[g] {
			roles = append(roles, RoleReadonly)
		}
	}

	return HighestRole(roles)
}

// ResolveRole вычисляет итоговую роль = max(realm-роли, роль по группам).
func ResolveRole(realmRoles, groups, adminGroups, readonlyGroups []string) string {
	return maxRole(HighestRole(realmRoles), MapGroupsToRole(groups, adminGroups, readonlyGroups))
}

// Allows сообщает, достаточно ли роли role для действия, требующего required.
func Allows(role, required string) bool {
	if !IsValidRole(role) {
		return false
	}
	return roleWeight[role] >= roleWeight[required]
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
