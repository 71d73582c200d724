// Package compiler turns CUE card files into card metadata.
//
// A card file declares one or more cards under the top-level "card"
// struct, keyed by card name:
//
//	card: fetch_action: {
//		parent: "action.web"
//		args: { url: "String", timeout: "Int" }
//		branches: [{ branch: "Success", type: "primary", id: "Result", position: "right" }]
//		view: { title: "fetch", form: [{ name: "url", type: "String" }] }
//		summary: ["url"]
//		i18n: en: { title: "Network request" }
//	}
//
// Field order in args, form and summary is declaration order.
package compiler

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/i18n"
)

// CompileSource compiles every card declared in a card file, in
// declaration order.
func CompileSource(filename string, src []byte) ([]*card.Meta, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cards := v.LookupPath(cue.ParsePath("card"))
	if !cards.Exists() {
		return nil, &CompileError{Field: "card", Message: "no card struct found", Pos: v.Pos()}
	}
	iter, err := cards.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []*card.Meta
	for iter.Next() {
		m, err := CompileCard(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// CompileCard parses one card struct. The card name is the last path
// selector, e.g. the value at "card.fetch_action" compiles to a card
// named fetch_action.
func CompileCard(v cue.Value) (*card.Meta, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := card.Meta{I18n: i18n.Catalog{}}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		m.Name = labels[len(labels)-1].Unquoted()
	}

	parentVal := v.LookupPath(cue.ParsePath("parent"))
	if !parentVal.Exists() {
		return nil, &CompileError{Field: "parent", Message: "parent is required", Pos: v.Pos()}
	}
	parent, err := parentVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	m.Parent = parent

	if m.Args, err = parseArgs(v.LookupPath(cue.ParsePath("args"))); err != nil {
		return nil, err
	}
	if m.Branches, err = parseBranches(v.LookupPath(cue.ParsePath("branches"))); err != nil {
		return nil, err
	}
	if m.View, err = parseView(v.LookupPath(cue.ParsePath("view"))); err != nil {
		return nil, err
	}
	if m.Summary, err = parseSummary(v.LookupPath(cue.ParsePath("summary"))); err != nil {
		return nil, err
	}
	if catalog := v.LookupPath(cue.ParsePath("i18n")); catalog.Exists() {
		if err := decode(catalog, "i18n", &m.I18n); err != nil {
			return nil, err
		}
	}
	return card.Define(m), nil
}

// parseArgs reads args in declaration order. A string value is a kind; a
// struct value is a nested group.
func parseArgs(v cue.Value) ([]card.Arg, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var args []card.Arg
	for iter.Next() {
		name := iter.Selector().Unquoted()
		val := iter.Value()
		if kind, err := val.String(); err == nil {
			args = append(args, card.Arg{Name: name, Kind: kind})
			continue
		}
		if val.IncompleteKind() != cue.StructKind {
			return nil, &CompileError{
				Field:   "args." + name,
				Message: "arg must be a kind string or a nested struct",
				Pos:     val.Pos(),
			}
		}
		fields, err := parseArgs(val)
		if err != nil {
			return nil, err
		}
		args = append(args, card.Arg{Name: name, Fields: fields})
	}
	return args, nil
}

func parseBranches(v cue.Value) ([]card.Branch, error) {
	if !v.Exists() {
		return nil, nil
	}
	var branches []card.Branch
	if err := decode(v, "branches", &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func parseView(v cue.Value) (card.FormView, error) {
	var view card.FormView
	if !v.Exists() {
		return view, nil
	}
	if t := v.LookupPath(cue.ParsePath("title")); t.Exists() {
		s, err := t.String()
		if err != nil {
			return view, formatCUEError(err)
		}
		view.Title = s
	}
	if f := v.LookupPath(cue.ParsePath("form")); f.Exists() {
		var fields []form.Field
		if err := decode(f, "view.form", &fields); err != nil {
			return view, err
		}
		view.Form = fields
	}
	return view, nil
}

// parseSummary reads a list of keys or entries into a static summary.
func parseSummary(v cue.Value) (card.SummaryFunc, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var entries []card.SummaryEntry
	for iter.Next() {
		item := iter.Value()
		if key, err := item.String(); err == nil {
			entries = append(entries, card.SummaryEntry{Key: key})
			continue
		}
		var e card.SummaryEntry
		if err := decode(item, "summary", &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return func(card.SummaryContext) []card.SummaryEntry {
		out := make([]card.SummaryEntry, len(entries))
		copy(out, entries)
		return out
	}, nil
}

// decode goes through JSON so the Go types keep a single wire format.
func decode(v cue.Value, field string, dst any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return formatCUEError(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
