package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies what kind of product a lot belongs to.
type Category string

const (
	CategoryVaccine Category = "vaccine"
	CategoryLARC    Category = "larc"
	CategorySupply  Category = "supply"
)

// Antigens referenced by the checkout rules. The catalog carries many more.
const (
	AntigenInfluenza = "Influenza"
	AntigenRSV       = "RSV"
	AntigenTdap      = "Tdap"
	AntigenZoster    = "Zoster"
	AntigenIPV       = "IPV"
)

// Route codes.
const (
	RouteIntramuscular           = "IM"
	RouteSubcutaneous            = "SC"
	RouteIntradermal             = "ID"
	RouteIntranasal              = "IN"
	RouteOral                    = "PO"
	RouteIntramuscularOrSubcutan = "IM_SC"
)

type Presentation string

const (
	PresentationSingleDoseVial   Presentation = "single_dose_vial"
	PresentationMultiDoseVial    Presentation = "multi_dose_vial"
	PresentationPrefilledSyringe Presentation = "prefilled_syringe"
	PresentationNasalSpray       Presentation = "nasal_spray"
	PresentationImplant          Presentation = "implant"
)

// AgeIndication is one licensed age window for a product. A zero Gender
// applies to every patient; a nil DoseSeries applies to every dose.
type AgeIndication struct {
	ID         int    `db:"id" json:"id"`
	ProductID  int    `db:"product_id" json:"product_id"`
	MinAgeDays int    `db:"min_age_days" json:"min_age_days"`
	MaxAgeDays *int   `db:"max_age_days" json:"max_age_days,omitempty"`
	Gender     string `db:"gender" json:"gender,omitempty"`
	DoseSeries *int   `db:"dose_series" json:"dose_series,omitempty"`
}

// Contains reports whether ageDays falls inside the window, both ends inclusive.
func (a AgeIndication) Contains(ageDays int) bool {
	if ageDays < a.MinAgeDays {
		return false
	}
	return a.MaxAgeDays == nil || ageDays <= *a.MaxAgeDays
}

// AppliesToGender is true when the indication is gender neutral, matches, or
// the patient's gender is not recorded.
func (a AgeIndication) AppliesToGender(gender string) bool {
	return a.Gender == "" || gender == "" || strings.EqualFold(a.Gender, gender)
}

// AgeWarning replaces the hard out-of-age block with an advisory for products
// whose label allows off-window use at provider discretion.
type AgeWarning struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Product is the catalog entry a lot is drawn from.
type Product struct {
	ID             int              `db:"id" json:"id"`
	DisplayName    string           `db:"display_name" json:"display_name"`
	Antigen        string           `db:"antigen" json:"antigen"`
	Category       Category         `db:"category" json:"category"`
	InventoryGroup string           `db:"inventory_group" json:"inventory_group,omitempty"`
	RouteCode      string           `db:"route_code" json:"route_code"`
	Presentation   Presentation     `db:"presentation" json:"presentation,omitempty"`
	MedicarePart   string           `db:"medicare_part" json:"medicare_part,omitempty"`
	OneTouchRate   *decimal.Decimal `db:"one_touch_rate" json:"one_touch_rate,omitempty"`
	AgeWarning     *AgeWarning      `json:"age_warning,omitempty"`
	AgeIndications []AgeIndication  `json:"age_indications,omitempty"`
}

// IsFlu reports whether the product is an influenza vaccine.
func (p *Product) IsFlu() bool {
	return strings.EqualFold(p.Antigen, AntigenInfluenza)
}

func (p *Product) IsLARC() bool { return p.Category == CategoryLARC }

// Lot is a specific manufactured lot of a product.
type Lot struct {
	LotNumber      string     `db:"lot_number" json:"lot_number"`
	ProductID      int        `db:"product_id" json:"product_id"`
	SalesProductID int        `db:"sales_product_id" json:"sales_product_id"`
	ExpirationDate *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	Product        Product    `json:"product"`
}

// ExpiredOn reports whether the lot expired strictly before the calendar day
// of today. A lot expiring today can still be administered today.
func (l *Lot) ExpiredOn(today time.Time) bool {
	if l.ExpirationDate == nil {
		return false
	}
	return DateOf(*l.ExpirationDate).Before(DateOf(today))
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
