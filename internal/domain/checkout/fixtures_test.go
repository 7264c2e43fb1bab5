package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/inventory"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

var today = time.Date(2026, time.March, 1, 15, 30, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func datePtr(t time.Time) *time.Time { return &t }

func yearsOld(n int) *time.Time { return datePtr(today.AddDate(-n, 0, 0)) }

func daysOld(n int) *time.Time { return datePtr(today.AddDate(0, 0, -n)) }

func rate(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func ipol() product.Product {
	return product.Product{
		ID: 19, DisplayName: "IPOL", Antigen: product.AntigenIPV,
		Category: product.CategoryVaccine, InventoryGroup: "IPV",
		RouteCode: product.RouteIntramuscularOrSubcutan,
		AgeIndications: []product.AgeIndication{
			{ID: 190, ProductID: 19, MinAgeDays: 42},
		},
	}
}

func beyfortus(id int) product.Product {
	return product.Product{
		ID: id, DisplayName: "Beyfortus", Antigen: product.AntigenRSV,
		Category: product.CategoryVaccine, RouteCode: product.RouteIntramuscular,
		AgeIndications: []product.AgeIndication{
			{ID: id * 10, ProductID: id, MinAgeDays: 0, MaxAgeDays: intPtr(240)},
		},
	}
}

func abrysvo() product.Product {
	return product.Product{
		ID: 340, DisplayName: "Abrysvo", Antigen: product.AntigenRSV,
		Category: product.CategoryVaccine, RouteCode: product.RouteIntramuscular,
	}
}

func tdap(selfPayRate *decimal.Decimal) product.Product {
	return product.Product{
		ID: 30, DisplayName: "Boostrix", Antigen: product.AntigenTdap,
		Category: product.CategoryVaccine, InventoryGroup: "Tdap",
		RouteCode: product.RouteIntramuscular, OneTouchRate: selfPayRate,
		AgeIndications: []product.AgeIndication{
			{ID: 300, ProductID: 30, MinAgeDays: 2555},
		},
	}
}

func shingrix() product.Product {
	return product.Product{
		ID: 50, DisplayName: "Shingrix", Antigen: product.AntigenZoster,
		Category: product.CategoryVaccine, RouteCode: product.RouteIntramuscular,
		MedicarePart: "D",
		AgeIndications: []product.AgeIndication{
			{ID: 500, ProductID: 50, MinAgeDays: 18250},
		},
	}
}

func gardasil() product.Product {
	return product.Product{
		ID: 60, DisplayName: "Gardasil 9", Antigen: "HPV",
		Category: product.CategoryVaccine, RouteCode: product.RouteIntramuscular,
		AgeWarning: &product.AgeWarning{Title: "Outside licensed ages", Message: "Confirm with provider before administering."},
		AgeIndications: []product.AgeIndication{
			{ID: 600, ProductID: 60, MinAgeDays: 3285, MaxAgeDays: intPtr(16436)},
		},
	}
}

func flu() product.Product {
	return product.Product{
		ID: 70, DisplayName: "Fluzone", Antigen: product.AntigenInfluenza,
		Category: product.CategoryVaccine, InventoryGroup: "Flu",
		RouteCode: product.RouteIntramuscular,
		AgeIndications: []product.AgeIndication{
			{ID: 700, ProductID: 70, MinAgeDays: 180},
		},
	}
}

func partnerFlu() product.Product {
	p := flu()
	p.ID = 71
	p.DisplayName = "Flucelvax (partner)"
	p.Category = CategoryPartnerFlu
	return p
}

func larc(id int, name string) product.Product {
	return product.Product{
		ID: id, DisplayName: name, Category: product.CategoryLARC,
		Presentation: product.PresentationImplant, RouteCode: product.RouteSubcutaneous,
	}
}

func lotOf(p product.Product, number string) product.Lot {
	return product.Lot{
		LotNumber:      number,
		ProductID:      p.ID,
		SalesProductID: p.ID * 100,
		ExpirationDate: datePtr(today.AddDate(1, 0, 0)),
		Product:        p,
	}
}

func apptFor(dob *time.Time) *appointment.Appointment {
	return &appointment.Appointment{
		ID:              uuid.New(),
		ClinicID:        7,
		ScheduledAt:     today,
		Patient:         appointment.Patient{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", DOB: dob},
		PaymentMethod:   appointment.PaymentInsurance,
		InventorySource: inventory.SourcePrivate,
		Editable:        true,
	}
}

func staged(lot product.Lot, state DoseState) StagedCartItem {
	return StagedCartItem{ID: uuid.New(), Lot: lot, DoseState: state}
}

func testVerifier() *Verifier {
	v := NewVerifier(DefaultPolicy())
	v.now = func() time.Time { return today }
	return v
}

func evaluate(c Candidate, appt *appointment.Appointment, others ...StagedCartItem) *VaccineWithIssues {
	return testVerifier().Evaluate(Request{Candidate: c, Appointment: appt, Staged: others})
}

func kindsEqual(got []IssueKind, want ...IssueKind) bool {
	if len(got) != len(want) {
		return false
	}
	for n := range got {
		if got[n] != want[n] {
			return false
		}
	}
	return true
}
