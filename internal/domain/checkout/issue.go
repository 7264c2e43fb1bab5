package checkout

import "fmt"

// IssueKind is the closed set of problems the verifier can raise on a dose.
type IssueKind string

const (
	IssueExpired                   IssueKind = "expired"
	IssueOutOfAgeIndication        IssueKind = "out_of_age_indication"
	IssueOutOfAgeWarning           IssueKind = "out_of_age_warning"
	IssueDuplicateLot              IssueKind = "duplicate_lot"
	IssueDuplicateProduct          IssueKind = "duplicate_product"
	IssueDuplicateProductException IssueKind = "duplicate_product_exception"
	IssueRestrictedProduct         IssueKind = "restricted_product"
	IssueProductNotCovered         IssueKind = "product_not_covered"
	IssueCopayRequired             IssueKind = "copay_required"
	IssueRouteSelectionRequired    IssueKind = "route_selection_required"
	IssueWrongStock                IssueKind = "wrong_stock"
	IssueLarcAdded                 IssueKind = "larc_added"
)

// precedence is the evaluation order. Consumers that show a single banner
// show the issue that comes first here.
var precedence = []IssueKind{
	IssueExpired,
	IssueOutOfAgeIndication,
	IssueOutOfAgeWarning,
	IssueDuplicateLot,
	IssueDuplicateProduct,
	IssueDuplicateProductException,
	IssueRestrictedProduct,
	IssueProductNotCovered,
	IssueCopayRequired,
	IssueRouteSelectionRequired,
	IssueWrongStock,
	IssueLarcAdded,
}

// Precedence returns the position of k in evaluation order, or -1 for an
// unknown kind.
func (k IssueKind) Precedence() int {
	for i, p := range precedence {
		if p == k {
			return i
		}
	}
	return -1
}

func (k IssueKind) Valid() bool { return k.Precedence() >= 0 }

// Blocking is the default submission policy: advisory issues let checkout
// proceed, everything else holds it.
func (k IssueKind) Blocking() bool {
	switch k {
	case IssueOutOfAgeWarning, IssueLarcAdded:
		return false
	default:
		return true
	}
}

// Issue is one verifier finding. Title and Message are only populated for
// IssueOutOfAgeWarning, where they come from product metadata.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message,omitempty"`
}

func newIssue(kind IssueKind) Issue { return Issue{Kind: kind} }

func outOfAgeWarning(title, message string) Issue {
	return Issue{Kind: IssueOutOfAgeWarning, Title: title, Message: message}
}

// Describe renders the banner text shown for the issue.
func (i Issue) Describe() string {
	switch i.Kind {
	case IssueExpired:
		return "This lot is expired."
	case IssueOutOfAgeIndication:
		return "Patient is outside the age indication for this product."
	case IssueOutOfAgeWarning:
		switch {
		case i.Title == "" && i.Message == "":
			return "Patient is outside the usual age range for this product."
		case i.Title == "":
			return i.Message
		case i.Message == "":
			return i.Title
		}
		return fmt.Sprintf("%s: %s", i.Title, i.Message)
	case IssueDuplicateLot:
		return "This lot has already been added to the checkout."
	case IssueDuplicateProduct:
		return "This product has already been added to the checkout."
	case IssueDuplicateProductException:
		return "Only one dose of this product can be given per visit."
	case IssueRestrictedProduct:
		return "This product cannot be given with the other products in the checkout."
	case IssueProductNotCovered:
		return "Patient's coverage does not include this product."
	case IssueCopayRequired:
		return "Run a MedD copay check before administering this product."
	case IssueRouteSelectionRequired:
		return "Select the administration route for this product."
	case IssueWrongStock:
		return "This lot is not in the appointment's inventory source."
	case IssueLarcAdded:
		return "LARC device added."
	default:
		return string(i.Kind)
	}
}

// Issues is kept in evaluation order with at most one entry per kind.
type Issues []Issue

func (is *Issues) add(issue Issue) {
	if is.Has(issue.Kind) {
		return
	}
	*is = append(*is, issue)
}

func (is Issues) Has(kind IssueKind) bool {
	for _, i := range is {
		if i.Kind == kind {
			return true
		}
	}
	return false
}

func (is Issues) Kinds() []IssueKind {
	out := make([]IssueKind, len(is))
	for n, i := range is {
		out[n] = i.Kind
	}
	return out
}

// Blocking reports whether any issue holds submission.
func (is Issues) Blocking() bool {
	for _, i := range is {
		if i.Kind.Blocking() {
			return true
		}
	}
	return false
}

// Top returns the highest precedence issue.
func (is Issues) Top() (Issue, bool) {
	if len(is) == 0 {
		return Issue{}, false
	}
	top := is[0]
	for _, i := range is[1:] {
		if i.Kind.Precedence() < top.Kind.Precedence() {
			top = i
		}
	}
	return top, true
}

func (is Issues) clone() Issues {
	if is == nil {
		return nil
	}
	out := make(Issues, len(is))
	copy(out, is)
	return out
}
