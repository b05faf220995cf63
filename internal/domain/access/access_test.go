package access

import "testing"

func TestHasRequiredAccess(t *testing.T) {
	tests := []struct {
		granted, required string
		want              bool
	}{
		{Delete, Read, true},
		{Modify, Modify, true},
		{Write, Modify, false},
		{Read, Write, false},
		{"modify", "READ", true},
		{"Owner", Read, false},
		// неизвестный требуемый уровень весит 0 и покрывается любым
		{Read, "Execute", true},
		{"", "", true},
	}

	for _, tt := range tests {
		if got := HasRequiredAccess(tt.granted, tt.required); got != tt.want {
			t.Errorf("HasRequiredAccess(%q, %q) = %v, хотели %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got, ok := Normalize(" delete "); !ok || got != Delete {
		t.Errorf("Normalize(delete) = %q, %v", got, ok)
	}
	if _, ok := Normalize("FullControl"); ok {
		t.Error("Normalize(FullControl) должен вернуть false")
	}
}
