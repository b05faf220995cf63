// Пакет access — уровни доступа к файлам и папкам.
// Уровни упорядочены: Read < Write < Modify < Delete; более высокий
// уровень включает все нижестоящие.
package access

import "strings"

// Уровни доступа.
const (
	Read   = "Read"
	Write  = "Write"
	Modify = "Modify"
	Delete = "Delete"
)

var levelWeight = map[string]int{
	"read":   1,
	"write":  2,
	"modify": 3,
	"delete": 4,
}

// Weight возвращает вес уровня доступа. Неизвестный уровень весит 0.
// Регистр не учитывается.
func Weight(level string) int {
	return levelWeight[strings.ToLower(strings.TrimSpace(level))]
}

// HasRequiredAccess сообщает, покрывает ли выданный уровень требуемый.
func HasRequiredAccess(granted, required string) bool {
	return Weight(granted) >= Weight(required)
}

// Normalize приводит имя уровня к каноническому виду (Read, Write, ...).
// Второй результат false, если уровень неизвестен.
func Normalize(level string) (string, bool) {
	switch Weight(level) {
	case 1:
		return Read, true
	case 2:
		return Write, true
	case 3:
		return Modify, true
	case 4:
		return Delete, true
	default:
		return "", false
	}
}
