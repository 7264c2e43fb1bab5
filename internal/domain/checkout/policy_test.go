package checkout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vaxhub/vaxhub/internal/domain/product"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	for _, antigen := range []string{"Tdap", "zoster", "RSV"} {
		if !p.isMedDAntigen(antigen) {
			t.Errorf("%s should be a MedD antigen", antigen)
		}
	}
	if p.isMedDAntigen(product.AntigenInfluenza) {
		t.Error("influenza should not be a MedD antigen")
	}
	if !p.isAmbiguousRoute(product.RouteIntramuscularOrSubcutan) || p.isAmbiguousRoute(product.RouteIntramuscular) {
		t.Error("only IM_SC should need route selection")
	}
	if !p.isSingleAdministration(ProductIDBeyfortus50, nil) || !p.isSingleAdministration(ProductIDBeyfortus100, nil) {
		t.Error("Beyfortus should be single administration")
	}
	if !p.restricts(CategoryPartnerFlu) || p.restricts(product.CategoryVaccine) {
		t.Error("only partner flu should be restricted")
	}
}

func TestLoadPolicy(t *testing.T) {
	path := writeRules(t, `
medd_antigens: [Zoster]
duplicate_exceptions:
  - product_id: 326
  - product_id: 88
    age_indication_id: 881
`)
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.isMedDAntigen(product.AntigenTdap) || !p.isMedDAntigen(product.AntigenZoster) {
		t.Errorf("expected MedD antigens from file, got %v", p.MedDAntigens)
	}
	if !p.isAmbiguousRoute(product.RouteIntramuscularOrSubcutan) {
		t.Error("keys missing from the file should keep defaults")
	}
	if p.isSingleAdministration(ProductIDBeyfortus100, nil) {
		t.Error("exception list should come from the file")
	}
	if !p.isSingleAdministration(88, &product.AgeIndication{ID: 881}) {
		t.Error("expected exception for product 88 under indication 881")
	}
	if p.isSingleAdministration(88, &product.AgeIndication{ID: 882}) || p.isSingleAdministration(88, nil) {
		t.Error("exception for product 88 is limited to indication 881")
	}
}

func TestLoadPolicy_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeRules(t, "medd_antigens: [Zoster") }},
		{"bad product id", func(t *testing.T) string { return writeRules(t, "duplicate_exceptions:\n  - product_id: 0\n") }},
		{"empty route code", func(t *testing.T) string { return writeRules(t, "ambiguous_route_codes: [\"\"]\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadPolicy(tt.path(t)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
