package schemas

import "time"

// -- Element Capture Schemas --

// Geometry is the best-effort box information for an element. Without a full
// layout pass, dimensions come from width/height attributes or inline style
// declarations; Declared reports whether any explicit dimension was found.
type Geometry struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Declared bool    `json:"declared"`
}

// Accessibility holds the accessibility-relevant attributes of an element.
type Accessibility struct {
	Role      string            `json:"role,omitempty"`
	TabIndex  int               `json:"tabIndex"`
	Focusable bool              `json:"focusable"`
	Aria      map[string]string `json:"aria,omitempty"`
}

// Extraction is the snapshot produced by the attribute/style extractor for a
// single element: geometry, visibility, the computed style subset and the
// accessibility attributes.
type Extraction struct {
	Geometry      Geometry          `json:"geometry"`
	Visible       bool              `json:"visible"`
	Style         map[string]string `json:"style,omitempty"`
	Accessibility Accessibility     `json:"accessibility"`
}

// FormRef identifies the form enclosing a captured element.
type FormRef struct {
	Path   string `json:"path"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Action string `json:"action,omitempty"`
	Method string `json:"method,omitempty"`
	Fields int    `json:"fields"`
}

// CapturedElement is the immutable record of one element at capture time.
// It is created exactly once per element node and never mutated afterwards.
type CapturedElement struct {
	// Identification.
	Tag     string   `json:"tag"`
	Type    string   `json:"type,omitempty"`
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Classes []string `json:"classes,omitempty"`

	// Content.
	Label       string `json:"label,omitempty"`
	Text        string `json:"text,omitempty"`
	Value       string `json:"value,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Title       string `json:"title,omitempty"`

	// State flags.
	Required bool `json:"required,omitempty"`
	Disabled bool `json:"disabled,omitempty"`
	ReadOnly bool `json:"readonly,omitempty"`
	Checked  bool `json:"checked,omitempty"`
	Selected bool `json:"selected,omitempty"`

	// Navigation data.
	Href   string `json:"href,omitempty"`
	Target string `json:"target,omitempty"`

	// Structural path is a diagnostic locator, never an identity key: two
	// distinct nodes can share a path after structural mutations.
	Path string   `json:"path"`
	Form *FormRef `json:"form,omitempty"`

	// Full attribute mapping (keys unique, order irrelevant).
	Attributes map[string]string `json:"attributes,omitempty"`

	Extraction Extraction `json:"extraction"`
	CapturedAt time.Time  `json:"capturedAt"`
}

// ErrorRecord is an append-only failure entry. Capture and interaction
// failures never abort a run; they accumulate here instead.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Path      string    `json:"path,omitempty"`
	Trace     string    `json:"trace,omitempty"`
}
