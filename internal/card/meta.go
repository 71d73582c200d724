// Package card holds the card metadata model and its composition rules.
//
// A card is declared once with Define and may later be extended or
// overridden in place. Every holder of the *Meta observes the change, so a
// card listed in a Registry reflects later composition without being
// registered again. Composition must finish before concurrent readers
// exist; the Registry enforces this with a single writer lock and Seal.
package card

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/shape"
)

// Position is the side of a card a branch handle sits on.
type Position string

const (
	Left   Position = "left"
	Right  Position = "right"
	Top    Position = "top"
	Bottom Position = "bottom"
)

// Branch is one named output edge of a card.
type Branch struct {
	Name     string
	Kind     string
	TargetID string
	Position Position
	// Plug describes what the branch produces; nil when it produces nothing.
	Plug shape.Node
}

type branchJSON struct {
	Name     string       `json:"branch"`
	Kind     string       `json:"type"`
	TargetID string       `json:"id"`
	Position Position     `json:"position"`
	Plug     *shape.Value `json:"plug,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b Branch) MarshalJSON() ([]byte, error) {
	w := branchJSON{Name: b.Name, Kind: b.Kind, TargetID: b.TargetID, Position: b.Position}
	if b.Plug != nil {
		w.Plug = &shape.Value{Node: b.Plug}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Branch) UnmarshalJSON(data []byte) error {
	var w branchJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Branch{Name: w.Name, Kind: w.Kind, TargetID: w.TargetID, Position: w.Position}
	if w.Plug != nil {
		b.Plug = w.Plug.Node
	}
	return nil
}

// Arg kinds accepted by the host.
const (
	ArgString = "String"
	ArgInt    = "Int"
	ArgFloat  = "Float"
	ArgText   = "Text"
	ArgFile   = "File"
	ArgCode   = "Code"
	ArgBool   = "Bool"
)

// ArgKinds lists every primitive arg kind.
var ArgKinds = []string{ArgString, ArgInt, ArgFloat, ArgText, ArgFile, ArgCode, ArgBool}

// Arg is one declared argument. An Arg with Fields is a nested group and
// has no Kind of its own.
type Arg struct {
	Name   string `json:"name"`
	Kind   string `json:"kind,omitempty"`
	Fields []Arg  `json:"fields,omitempty"`
}

// Instance is a placed card ("lit card") as reported by the host.
type Instance struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Type  string         `json:"type"`
	Data  any            `json:"data"`
	Plug  map[string]any `json:"plug"`
}

// SummaryEntry is one key/value preview shown on a placed card.
type SummaryEntry struct {
	Key         string `json:"key"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Value       any    `json:"value,omitempty"`
	Width       int    `json:"width,omitempty"`
}

// SummaryContext is passed to summary functions.
type SummaryContext struct {
	Card       *Meta
	Instance   Instance
	Translator *i18n.Translator
}

// SummaryFunc produces the preview entries of a placed card.
type SummaryFunc func(ctx SummaryContext) []SummaryEntry

// FormView is the card's editing form.
type FormView struct {
	Title     string
	Form      []form.Field
	Formatter form.Formatter
}

// Meta is the declaration of one action or trigger card.
type Meta struct {
	Branches []Branch
	// Parent is the dotted namespace, e.g. "action.web".
	Parent  string
	Name    string
	Args    []Arg
	Summary SummaryFunc
	View    FormView
	I18n    i18n.Catalog
}

// Define returns the live handle for a card declaration. Nothing is
// validated here; problems surface when the card is used.
func Define(m Meta) *Meta {
	if m.I18n == nil {
		m.I18n = i18n.Catalog{}
	}
	return &m
}

// ArgNames returns the top-level argument names in declaration order.
func (m *Meta) ArgNames() []string {
	names := make([]string, len(m.Args))
	for i, a := range m.Args {
		names[i] = a.Name
	}
	return names
}

// Branch returns the named branch.
func (m *Meta) Branch(name string) (Branch, bool) {
	for _, b := range m.Branches {
		if b.Name == name {
			return b, true
		}
	}
	return Branch{}, false
}

// Field returns the named form field.
func (m *Meta) Field(name string) (form.Field, bool) {
	for _, f := range m.View.Form {
		if f.Name == name {
			return f, true
		}
	}
	return form.Field{}, false
}

// Translator returns a translator scoped to the card's own catalog.
func (m *Meta) Translator(locale string, opts ...i18n.Option) *i18n.Translator {
	return i18n.New(m.I18n, locale, opts...)
}

// Title returns the localized card title, or the card name.
func (m *Meta) Title(tr *i18n.Translator) string {
	if s := tr.T("title"); s != "title" && s != "" {
		return s
	}
	return m.Name
}

// RenderSummary runs the summary function for inst and fills entries
// that leave Title or Value empty: Title from "<key>.title" in the card's
// catalog, Value from the instance data.
func (m *Meta) RenderSummary(inst Instance, tr *i18n.Translator) []SummaryEntry {
	if m.Summary == nil {
		return nil
	}
	if tr == nil {
		tr = m.Translator(i18n.DefaultLocale)
	}
	entries := m.Summary(SummaryContext{Card: m, Instance: inst, Translator: tr})
	data, _ := inst.Data.(map[string]any)
	out := make([]SummaryEntry, len(entries))
	for i, e := range entries {
		if e.Title == "" {
			key := e.Key + ".title"
			if s := tr.T(key); s != key {
				e.Title = s
			} else {
				e.Title = e.Key
			}
		}
		if e.Value == nil && data != nil {
			e.Value = data[e.Key]
		}
		out[i] = e
	}
	return out
}

// String implements fmt.Stringer.
func (m *Meta) String() string {
	return fmt.Sprintf("%s.%s", m.Parent, m.Name)
}
