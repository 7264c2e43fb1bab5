package checkout

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vaxhub/vaxhub/internal/domain/product"
)

// Catalog ids for products the default rules refer to.
const (
	ProductIDBeyfortus50  = 326
	ProductIDBeyfortus100 = 327
)

// ExceptionPair marks a product, optionally narrowed to one age indication,
// as single administration per encounter. AgeIndicationID 0 matches any.
type ExceptionPair struct {
	ProductID       int `yaml:"product_id" json:"product_id"`
	AgeIndicationID int `yaml:"age_indication_id" json:"age_indication_id,omitempty"`
}

func (p ExceptionPair) matches(productID int, indication *product.AgeIndication) bool {
	if p.ProductID != productID {
		return false
	}
	return p.AgeIndicationID == 0 || (indication != nil && indication.ID == p.AgeIndicationID)
}

// Policy holds the catalog rule tables. It changes with catalog releases, not
// per evaluation; per-call switches live in Flags.
type Policy struct {
	MedDAntigens         []string           `yaml:"medd_antigens"`
	AmbiguousRouteCodes  []string           `yaml:"ambiguous_route_codes"`
	DuplicateExceptions  []ExceptionPair    `yaml:"duplicate_exceptions"`
	RestrictedCategories []product.Category `yaml:"restricted_categories"`
}

// CategoryPartnerFlu is the category of flu lots supplied through partner
// programs, which may not be given alongside non-flu products.
const CategoryPartnerFlu product.Category = "partner_flu"

func DefaultPolicy() Policy {
	return Policy{
		MedDAntigens:        []string{product.AntigenTdap, product.AntigenZoster, product.AntigenRSV},
		AmbiguousRouteCodes: []string{product.RouteIntramuscularOrSubcutan},
		DuplicateExceptions: []ExceptionPair{
			{ProductID: ProductIDBeyfortus50},
			{ProductID: ProductIDBeyfortus100},
		},
		RestrictedCategories: []product.Category{CategoryPartnerFlu},
	}
}

// LoadPolicy reads a YAML rules file. Keys missing from the file keep their
// DefaultPolicy values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse rules file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	for _, e := range p.DuplicateExceptions {
		if e.ProductID <= 0 {
			return fmt.Errorf("duplicate exception with invalid product_id %d", e.ProductID)
		}
		if e.AgeIndicationID < 0 {
			return fmt.Errorf("duplicate exception for product %d has negative age_indication_id", e.ProductID)
		}
	}
	for _, code := range p.AmbiguousRouteCodes {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("ambiguous_route_codes contains an empty code")
		}
	}
	return nil
}

func (p Policy) isMedDAntigen(antigen string) bool {
	return containsFold(p.MedDAntigens, antigen)
}

func (p Policy) isAmbiguousRoute(code string) bool {
	return containsFold(p.AmbiguousRouteCodes, code)
}

func (p Policy) isSingleAdministration(productID int, indication *product.AgeIndication) bool {
	for _, e := range p.DuplicateExceptions {
		if e.matches(productID, indication) {
			return true
		}
	}
	return false
}

func (p Policy) restricts(category product.Category) bool {
	for _, c := range p.RestrictedCategories {
		if c == category {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Flags are the per-evaluation feature switches. Callers build them from
// configuration and the appointment for every call.
type Flags struct {
	IsRprdAndNotLocallyCreated bool `json:"is_rprd_and_not_locally_created"`
	IsDisableDuplicateRSV      bool `json:"is_disable_duplicate_rsv"`
	IsVaxCare3Flow             bool `json:"is_vaxcare3_flow"`
}
