package cards

import (
	"fmt"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/ir"
)

// extensions are applied in order after every card file is registered.
var extensions = []struct {
	card string
	ext  card.Extension
}{
	{"fetch_action", card.Extension{
		View:    &card.ViewExtension{Formatter: fetchFormatter},
		Summary: fetchSummary,
	}},
	{"program_action", card.Extension{
		View: &card.ViewExtension{Formatter: fieldsFormatter("code", "lang")},
	}},
	{"inject_context_action", card.Extension{
		View: &card.ViewExtension{Formatter: fieldsFormatter("key", "value")},
		I18n: i18n.Catalog{"en": {
			"title": "Inject context",
			"key":   map[string]any{"title": "Context key", "description": ""},
			"value": map[string]any{"title": "Context value", "description": ""},
		}},
	}},
	{"cron_trigger", card.Extension{
		View:    &card.ViewExtension{Formatter: cronFormatter},
		Summary: cronSummary,
	}},
}

func applyExtensions(reg *card.Registry) error {
	for _, e := range extensions {
		if err := reg.Extend(e.card, e.ext); err != nil {
			return fmt.Errorf("extend %s: %w", e.card, err)
		}
	}
	return nil
}

// fetchFormatter sends the timeout as whole seconds.
func fetchFormatter(model map[string]any) ir.Envelope {
	out := make(map[string]any, len(model))
	for k, v := range model {
		out[k] = v
	}
	if f, ok := out["timeout"].(float64); ok {
		out["timeout"] = int64(f)
	}
	return ir.JSON{Value: out}
}

// fieldsFormatter keeps only the named fields.
func fieldsFormatter(names ...string) func(map[string]any) ir.Envelope {
	return func(model map[string]any) ir.Envelope {
		out := make(map[string]any, len(names))
		for _, n := range names {
			if v, ok := model[n]; ok {
				out[n] = v
			}
		}
		return ir.JSON{Value: out}
	}
}

// cronFormatter sends the expression alone, as a String or a Plug.
func cronFormatter(model map[string]any) ir.Envelope {
	return ir.ToEnvelope(model["cron"])
}

// fetchSummary shows the request method by its localized label.
func fetchSummary(ctx card.SummaryContext) []card.SummaryEntry {
	data, _ := ctx.Instance.Data.(map[string]any)
	method, _ := data["method"].(string)
	if method == "" || ctx.Translator == nil {
		return nil
	}
	key := "Method_" + method
	if !ctx.Translator.TE(key) {
		return nil
	}
	return []card.SummaryEntry{{Key: "method", Value: ctx.Translator.T(key)}}
}

// cronSummary shows the expression of a placed cron trigger.
func cronSummary(ctx card.SummaryContext) []card.SummaryEntry {
	e := card.SummaryEntry{Key: "cron", Value: ctx.Instance.Data}
	if ctx.Translator != nil {
		e.Title = ctx.Translator.T("litArgs")
	}
	return []card.SummaryEntry{e}
}
