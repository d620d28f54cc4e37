// Package report aggregates an exploration snapshot into summary statistics
// and exports the final report.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// interactiveTags mirrors the trigger selector's tag set for statistics.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "summary": true, "details": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "tab": true,
	"menuitem": true, "checkbox": true, "radio": true,
}

var formFieldTags = map[string]bool{
	"input": true, "select": true, "textarea": true, "button": true,
}

// Build assembles the exported report: the snapshot plus aggregate counts by
// tag, by input type, and by category.
func Build(snap *schemas.Snapshot) *schemas.Report {
	stats := schemas.Stats{
		TotalElements: len(snap.Elements),
		ByTag:         make(map[string]int),
		ByType:        make(map[string]int),
	}

	for i := range snap.Elements {
		el := &snap.Elements[i]
		stats.ByTag[el.Tag]++
		if el.Type != "" {
			stats.ByType[el.Type]++
		}
		if isInteractive(el) {
			stats.Interactive++
		}
		if formFieldTags[el.Tag] {
			stats.FormFields++
		}
		if el.Required {
			stats.Required++
		}
		if el.Disabled {
			stats.Disabled++
		}
		if el.Extraction.Visible {
			stats.Visible++
		}
	}

	return &schemas.Report{Snapshot: *snap, Stats: stats}
}

func isInteractive(el *schemas.CapturedElement) bool {
	if el.Tag == "a" && el.Href == "" {
		return false
	}
	if interactiveTags[el.Tag] {
		return true
	}
	if v, ok := el.Attributes["contenteditable"]; ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "true" || v == "" {
			return true
		}
	}
	return interactiveRoles[el.Attributes["role"]]
}

// Reporter writes reports to an output.
type Reporter interface {
	// Write exports a single report.
	Write(r *schemas.Report) error
	// Close finalizes the report and releases the underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close, for stdout.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// jsonReporter writes indented JSON and owns its writer.
type jsonReporter struct {
	w io.WriteCloser
}

func (jr *jsonReporter) Write(r *schemas.Report) error {
	enc := json.NewEncoder(jr.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func (jr *jsonReporter) Close() error { return jr.w.Close() }

// New creates a JSON reporter writing to the given path, or to stdout when
// the path is empty or "stdout".
func New(outputPath string) (Reporter, error) {
	if outputPath == "" || outputPath == "stdout" {
		return &jsonReporter{w: &nopWriteCloser{os.Stdout}}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return &jsonReporter{w: f}, nil
}

// NewWithWriter creates a JSON reporter over an arbitrary writer. The caller
// keeps ownership of the writer.
func NewWithWriter(w io.Writer) Reporter {
	return &jsonReporter{w: &nopWriteCloser{w}}
}

// syncReporter serializes access to an underlying reporter. The encoder
// emits a report as many small writes, so concurrent runs sharing one
// stream would interleave mid-document without it.
type syncReporter struct {
	mu sync.Mutex
	r  Reporter
}

func (sr *syncReporter) Write(r *schemas.Report) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.r.Write(r)
}

func (sr *syncReporter) Close() error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.r.Close()
}

// NewSync wraps a reporter so it is safe to share across goroutines. Each
// report is written whole before the next one starts.
func NewSync(r Reporter) Reporter {
	return &syncReporter{r: r}
}
