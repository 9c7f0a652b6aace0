// Package report renders engine results for machines (json, jsonl) and
// people (text, markdown).
//
// Rendering is a pure function of the result: the same result always
// produces the same bytes. Timestamps and durations are the only
// run-dependent fields and are dropped with Options.NoTimestamps.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/ui"
)

// Format is an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatJSONL, FormatText, FormatMarkdown}

// ParseFormat resolves a --format value. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONL, FormatText, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", serrors.New(serrors.ErrCodeInvalidFormat,
		fmt.Sprintf("unknown output format %q", s), nil).
		WithSuggestion("use one of: " + strings.Join(names, ", "))
}

// Options controls rendering.
type Options struct {
	Format Format
	// NoTimestamps drops scan times and durations so output is byte-stable.
	NoTimestamps bool
	// Styles styles text output. Nil renders plain text.
	Styles *ui.Styles
}

func (o Options) styles() ui.Styles {
	if o.Styles == nil {
		return ui.NoColorStyles()
	}
	return *o.Styles
}

// Render writes a successful result in the requested format.
func Render(w io.Writer, res *engine.Result, opts Options) error {
	if res == nil || res.Err != nil {
		return serrors.InternalError("render called without a successful result", nil)
	}
	var err error
	switch res.State {
	case engine.StateRetrieve:
		err = renderRetrieve(w, res, opts)
	case engine.StateAnalyzeGaps:
		err = renderGaps(w, res, opts)
	default:
		return serrors.InternalError(fmt.Sprintf("nothing to render for state %s", res.State), nil)
	}
	if err != nil {
		return serrors.New(serrors.ErrCodeRenderFailed, "failed to write output", err).WithStage("render")
	}
	return nil
}

func renderRetrieve(w io.Writer, res *engine.Result, opts Options) error {
	switch opts.Format {
	case FormatJSONL:
		return retrieveJSONL(w, res, opts)
	case FormatText:
		return retrieveText(w, res, opts)
	case FormatMarkdown:
		return retrieveMarkdown(w, res)
	default:
		return retrieveJSON(w, res, opts)
	}
}

func renderGaps(w io.Writer, res *engine.Result, opts Options) error {
	switch opts.Format {
	case FormatJSONL:
		return gapsJSONL(w, res, opts)
	case FormatText:
		return gapsText(w, res, opts)
	case FormatMarkdown:
		return gapsMarkdown(w, res, opts)
	default:
		return gapsJSON(w, res, opts)
	}
}
