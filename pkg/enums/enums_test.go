package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	if err != nil || role != UserRoleAdmin {
		t.Fatalf("expected admin role, got %q err=%v", role, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if UserRole("").IsValid() {
		t.Fatal("empty role should be invalid")
	}
}

func TestRoleForStaff(t *testing.T) {
	if RoleForStaff(true) != UserRoleAdmin {
		t.Fatal("staff should map to admin")
	}
	if RoleForStaff(false) != UserRoleUser {
		t.Fatal("non staff should map to user")
	}
}

func TestImportFormatFromFileName(t *testing.T) {
	cases := map[string]ImportFormat{
		"medicines.csv":       ImportFormatCSV,
		"Medicines.XLSX":      ImportFormatXLSX,
		"/tmp/data/meds.xlsx": ImportFormatXLSX,
	}
	for name, want := range cases {
		got, err := ImportFormatFromFileName(name)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", name, want, got)
		}
	}
	if _, err := ImportFormatFromFileName("medicines.json"); err == nil {
		t.Fatal("expected json to be rejected")
	}
}
