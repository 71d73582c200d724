package card

import (
	"dario.cat/mergo"
	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/i18n"
)

// ViewExtension merges into a card's form view.
type ViewExtension struct {
	// Title replaces the current title when non-empty.
	Title string
	// Form entries merge into the form by field name; unknown names append.
	Form []form.Field
	// Formatter replaces the current formatter when non-nil.
	Formatter form.Formatter
}

// Extension is a delta merged into a card by Extend.
type Extension struct {
	Summary SummaryFunc
	View    *ViewExtension
	I18n    i18n.Catalog
}

// Override replaces top-level card fields wholesale. Nil fields are left
// alone; a non-nil empty slice or catalog replaces with empty.
type Override struct {
	Branches []Branch
	Parent   *string
	Name     *string
	Args     []Arg
	Summary  SummaryFunc
	View     *FormView
	I18n     i18n.Catalog
}

// Extend merges ext into m in place and returns m.
//
// The summary function is wrapped: extension entries with a key already
// produced by the original are shallow-merged into it (extension fields
// win), other entries are appended. Form fields merge by name. Catalogs
// deep-merge per locale. Merge failures are logged and skipped.
func (m *Meta) Extend(ext Extension) *Meta {
	log := zap.L().With(zap.String("card", m.Name))

	if ext.Summary != nil {
		m.Summary = composeSummary(m.Summary, ext.Summary, log)
	}

	if v := ext.View; v != nil {
		merged, err := form.MergeList(m.View.Form, v.Form)
		if err != nil {
			log.Warn("form extension skipped", zap.Error(err))
		}
		m.View.Form = merged
		if v.Title != "" {
			m.View.Title = v.Title
		}
		if v.Formatter != nil {
			m.View.Formatter = v.Formatter
		}
	}

	if ext.I18n != nil {
		if m.I18n == nil {
			m.I18n = i18n.Catalog{}
		}
		if err := i18n.Merge(m.I18n, ext.I18n); err != nil {
			log.Warn("i18n extension skipped", zap.Error(err))
		}
	}
	return m
}

func composeSummary(base, ext SummaryFunc, log *zap.Logger) SummaryFunc {
	return func(ctx SummaryContext) []SummaryEntry {
		var out []SummaryEntry
		if base != nil {
			out = base(ctx)
		}
		for _, e := range ext(ctx) {
			matched := false
			for i := range out {
				if e.Key == "" || out[i].Key != e.Key {
					continue
				}
				if err := mergo.Merge(&out[i], e, mergo.WithOverride); err != nil {
					log.Warn("summary entry merge skipped", zap.String("key", e.Key), zap.Error(err))
				}
				matched = true
				break
			}
			if !matched {
				out = append(out, e)
			}
		}
		return out
	}
}

// Override replaces each field present in ov and returns m.
func (m *Meta) Override(ov Override) *Meta {
	if ov.Branches != nil {
		m.Branches = ov.Branches
	}
	if ov.Parent != nil {
		m.Parent = *ov.Parent
	}
	if ov.Name != nil {
		m.Name = *ov.Name
	}
	if ov.Args != nil {
		m.Args = ov.Args
	}
	if ov.Summary != nil {
		m.Summary = ov.Summary
	}
	if ov.View != nil {
		m.View = *ov.View
	}
	if ov.I18n != nil {
		m.I18n = ov.I18n
	}
	return m
}
