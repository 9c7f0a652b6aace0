package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an original error
	cause := errors.New("permission denied")

	// When: wrapping it as a scan error
	err := ScanError(ErrCodeRepoUnreadable, "/tmp/repo", "cannot read repository", cause)

	// Then: the cause is reachable through the chain
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{name: "config", code: ErrCodeConfigInvalid, message: "bad weight", expected: "[ERR_102_CONFIG_INVALID] bad weight"},
		{name: "corpus", code: ErrCodeCorpusEmpty, message: "no documents", expected: "[ERR_202_CORPUS_EMPTY] no documents"},
		{name: "scan", code: ErrCodeRepoNotFound, message: "missing", expected: "[ERR_301_REPO_NOT_FOUND] missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeCorpusEmpty, "first", nil)
	b := New(ErrCodeCorpusEmpty, "second", nil)
	c := New(ErrCodeCorpusRead, "other", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeCorpusEmpty, CategoryCorpus, SeverityFatal},
		{ErrCodeRepoNotFound, CategoryScan, SeverityFatal},
		{ErrCodeInvalidBudget, CategoryValidation, SeverityError},
		{ErrCodeInternal, CategoryInternal, SeverityError},
		{"BAD", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.severity, e.Severity)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "corpus", err: CorpusError(ErrCodeCorpusEmpty, "/c", "empty", nil), want: ExitFatal},
		{name: "scan", err: ScanError(ErrCodeRepoNotFound, "/r", "missing", nil), want: ExitFatal},
		{name: "validation", err: New(ErrCodeInvalidBudget, "budget", nil), want: ExitInvalid},
		{name: "config", err: ConfigError("bad", nil), want: ExitInvalid},
		{name: "wrapped validation", err: fmt.Errorf("retrieve: %w", New(ErrCodeQueryEmpty, "q", nil)), want: ExitInvalid},
		{name: "plain error", err: errors.New("boom"), want: ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFormatForCLI_IncludesStageAndPath(t *testing.T) {
	err := CorpusError(ErrCodeCorpusNotFound, "/skills", "corpus directory not found", nil).
		WithSuggestion("pass --corpus")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: corpus directory not found")
	assert.Contains(t, out, "Stage: corpus")
	assert.Contains(t, out, "path: /skills")
	assert.Contains(t, out, "Hint: pass --corpus")
	assert.Contains(t, out, "Code: ERR_201_CORPUS_NOT_FOUND")
}

func TestFormatJSON_WrapsPlainErrors(t *testing.T) {
	data, err := FormatJSON(errors.New("boom"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeInternal, decoded["code"])
	assert.Equal(t, "boom", decoded["message"])
}

func TestWarning_String(t *testing.T) {
	w := PartialParseWarning("index", "a/SKILL.md", errors.New("empty body"))
	assert.Equal(t, "index/partial_parse: a/SKILL.md: empty body", w.String())

	b := BudgetExceededWarning("messaging/kafka", 5000, 1000)
	assert.Equal(t, WarnBudgetExceeded, b.Kind)
	assert.Contains(t, b.Message, "5000")
}

func TestAggregate(t *testing.T) {
	assert.NoError(t, Aggregate(nil))

	err := Aggregate([]Warning{
		{Kind: WarnPartialParse, Stage: "index", Path: "a.md", Message: "empty body"},
		{Kind: WarnCache, Stage: "corpus", Message: "locked"},
	})
	require.Error(t, err)
	assert.Equal(t, "index/partial_parse: a.md: empty body; corpus/cache: locked", err.Error())
}
