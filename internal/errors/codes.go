// Package errors provides structured error handling for skillscope.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Corpus errors (skill library missing or unparseable)
//   - 3XX: Scan errors (target repository missing or unreadable)
//   - 4XX: Validation errors (invalid arguments)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryCorpus indicates the skill library could not be loaded.
	CategoryCorpus Category = "CORPUS"
	// CategoryScan indicates the target repository could not be scanned.
	CategoryScan Category = "SCAN"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the request failed.
	SeverityError Severity = "ERROR"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Corpus errors (200-299)
	ErrCodeCorpusNotFound = "ERR_201_CORPUS_NOT_FOUND"
	ErrCodeCorpusEmpty    = "ERR_202_CORPUS_EMPTY"
	ErrCodeCorpusRead     = "ERR_203_CORPUS_READ"

	// Scan errors (300-399)
	ErrCodeRepoNotFound   = "ERR_301_REPO_NOT_FOUND"
	ErrCodeRepoNotDir     = "ERR_302_REPO_NOT_DIR"
	ErrCodeRepoUnreadable = "ERR_303_REPO_UNREADABLE"
	ErrCodeScanCancelled  = "ERR_304_SCAN_CANCELLED"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty    = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidBudget = "ERR_403_INVALID_BUDGET"
	ErrCodeInvalidFormat = "ERR_404_INVALID_FORMAT"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeScoreFailed  = "ERR_502_SCORE_FAILED"
	ErrCodeCacheFailed  = "ERR_503_CACHE_FAILED"
	ErrCodeRenderFailed = "ERR_504_RENDER_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryCorpus
	case '3':
		return CategoryScan
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Corpus and scan failures abort before any request is served.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryCorpus, CategoryScan:
		return SeverityFatal
	default:
		return SeverityError
	}
}
