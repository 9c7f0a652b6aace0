package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

type failedDoc struct {
	Type        string              `json:"type,omitempty"`
	State       string              `json:"state"`
	Stage       string              `json:"stage"`
	Code        string              `json:"code,omitempty"`
	Error       string              `json:"error"`
	Fingerprint *fingerprintSummary `json:"fingerprint"`
	Warnings    []serrors.Warning   `json:"warnings"`
}

// HasPartial reports whether a failed result still carries a fingerprint
// worth rendering.
func HasPartial(res *engine.Result) bool {
	return res != nil && res.Err != nil && res.Fingerprint != nil
}

// RenderFailure writes the partial fingerprint of a failed result. The
// fingerprint is always marked partial: a scan that failed did not finish.
func RenderFailure(w io.Writer, res *engine.Result, opts Options) error {
	if !HasPartial(res) {
		return serrors.InternalError("no partial fingerprint to render", nil)
	}
	fp := res.Fingerprint
	doc := failedDoc{
		State:       string(engine.StateFailed),
		Stage:       res.Stage,
		Code:        serrors.GetCode(res.Err),
		Error:       res.Err.Error(),
		Fingerprint: &fingerprintSummary{Root: fp.Root, Partial: true, Signals: fp.Signals, Stats: stats(fp, opts)},
		Warnings:    warnings(res),
	}

	var err error
	switch opts.Format {
	case FormatJSONL:
		doc.Type = "failed"
		err = json.NewEncoder(w).Encode(doc)
	case FormatText, FormatMarkdown:
		err = failureText(w, doc, opts.Format == FormatMarkdown)
	default:
		err = writeJSON(w, doc)
	}
	if err != nil {
		return serrors.New(serrors.ErrCodeRenderFailed, "failed to write output", err).WithStage("render")
	}
	return nil
}

func failureText(w io.Writer, doc failedDoc, markdown bool) error {
	var b strings.Builder
	if markdown {
		fmt.Fprintf(&b, "# Partial Scan\n\n**Failed at:** %s\n**Error:** %s\n\n", doc.Stage, cell(doc.Error))
		b.WriteString("## Signals gathered before the failure\n\n")
		for _, sg := range doc.Fingerprint.Signals {
			fmt.Fprintf(&b, "- `%s` (%.2f)\n", sg.Token, sg.Confidence)
		}
	} else {
		fmt.Fprintf(&b, "Failed at %s: %s\n", doc.Stage, doc.Error)
		fmt.Fprintf(&b, "Partial signals: %s\n", signalList(doc.Fingerprint.Signals))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
