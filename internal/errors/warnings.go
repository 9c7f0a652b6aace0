package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// WarningKind classifies a recoverable problem surfaced alongside a result.
type WarningKind string

const (
	// WarnPartialParse marks a single document or file that failed to parse or read.
	WarnPartialParse WarningKind = "partial_parse"
	// WarnBudgetExceeded marks a pack whose top-scored document alone exceeds the budget.
	WarnBudgetExceeded WarningKind = "budget_exceeded"
	// WarnScanTruncated marks a scan unit that hit a size, depth or count cap.
	WarnScanTruncated WarningKind = "scan_truncated"
	// WarnScanTimeout marks a scan stopped by the wall-clock timeout or cancellation.
	WarnScanTimeout WarningKind = "scan_timeout"
	// WarnDuplicateID marks a document skipped because its id was already taken.
	WarnDuplicateID WarningKind = "duplicate_id"
	// WarnCache marks a non-fatal index cache failure.
	WarnCache WarningKind = "cache"
	// WarnDiversitySwap records a document replaced by the packer's diversity pass.
	WarnDiversitySwap WarningKind = "diversity_swap"
	// WarnProfileUnresolved marks a profile document id with no matching document.
	WarnProfileUnresolved WarningKind = "profile_unresolved"
	// WarnPinnedSkipped marks an essential document that did not fit the budget.
	WarnPinnedSkipped WarningKind = "pinned_skipped"
)

// Warning is a non-fatal condition reported with a result rather than returned as an error.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Stage   string      `json:"stage"`
	Path    string      `json:"path,omitempty"`
	Message string      `json:"message"`
}

// String renders the warning for logs and text output.
func (w Warning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("%s/%s: %s", w.Stage, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s/%s: %s: %s", w.Stage, w.Kind, w.Path, w.Message)
}

// PartialParseWarning reports a document or file that was skipped.
func PartialParseWarning(stage, path string, cause error) Warning {
	return Warning{Kind: WarnPartialParse, Stage: stage, Path: path, Message: cause.Error()}
}

// BudgetExceededWarning reports that the top-ranked document cannot fit the budget.
func BudgetExceededWarning(id string, tokens, budget int) Warning {
	return Warning{
		Kind:    WarnBudgetExceeded,
		Stage:   "pack",
		Path:    id,
		Message: fmt.Sprintf("top document needs %d tokens, budget is %d", tokens, budget),
	}
}

// Aggregate folds warnings into a single multierror for logging.
// Returns nil when there are none.
func Aggregate(warnings []Warning) error {
	var merr *multierror.Error
	for _, w := range warnings {
		merr = multierror.Append(merr, fmt.Errorf("%s", w.String()))
	}
	if merr == nil {
		return nil
	}
	merr.ErrorFormat = func(errs []error) string {
		parts := make([]string, len(errs))
		for i, e := range errs {
			parts[i] = e.Error()
		}
		return strings.Join(parts, "; ")
	}
	return merr.ErrorOrNil()
}
