package card

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/shape"
)

func sample() *Meta {
	return Define(Meta{
		Branches: []Branch{
			{Name: "source", Kind: "source", TargetID: "Result", Position: Left},
			{Name: "Success", Kind: "primary", TargetID: "Result", Position: Right,
				Plug: shape.MakeObject(shape.Field{Name: "body", Type: shape.MakePrimitive(shape.KindString)})},
		},
		Parent: "action.web",
		Name:   "fetch_action",
		Args:   []Arg{{Name: "url", Kind: ArgString}, {Name: "timeout", Kind: ArgInt}},
		Summary: func(SummaryContext) []SummaryEntry {
			return []SummaryEntry{{Key: "x", Value: 1}}
		},
		View: FormView{Form: []form.Field{{Name: "a", Type: form.String}}},
		I18n: i18n.Catalog{"en": {"title": "Network request", "x": map[string]any{"title": "Ex"}}},
	})
}

func TestExtend_FormMergesByName(t *testing.T) {
	c := sample()
	c.Extend(Extension{View: &ViewExtension{Form: []form.Field{{Name: "a", Optional: true}}}})

	require.Len(t, c.View.Form, 1)
	assert.Equal(t, "a", c.View.Form[0].Name)
	assert.True(t, c.View.Form[0].Optional)
	assert.Equal(t, form.String, c.View.Form[0].Type)
}

func TestExtend_FormAppendsUnknown(t *testing.T) {
	c := sample()
	c.Extend(Extension{View: &ViewExtension{Form: []form.Field{{Name: "b", Type: form.Number}}}})
	assert.Equal(t, []string{"a", "b"}, []string{c.View.Form[0].Name, c.View.Form[1].Name})
}

func TestExtend_TitleAndFormatterReplace(t *testing.T) {
	c := sample()
	c.Extend(Extension{View: &ViewExtension{
		Title:     "Fetch",
		Formatter: func(map[string]any) ir.Envelope { return ir.Null{} },
	}})
	assert.Equal(t, "Fetch", c.View.Title)
	require.NotNil(t, c.View.Formatter)
	assert.Equal(t, ir.Null{}, c.View.Formatter(nil))

	c.Extend(Extension{View: &ViewExtension{}})
	assert.Equal(t, "Fetch", c.View.Title, "empty title leaves the current one")
}

func TestExtend_SummaryMergesByKey(t *testing.T) {
	c := sample()
	c.Extend(Extension{Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Key: "x", Value: 2}, {Key: "y", Width: 2}}
	}})

	got := c.Summary(SummaryContext{Card: c})
	require.Len(t, got, 2)
	assert.Equal(t, SummaryEntry{Key: "x", Value: 2}, got[0])
	assert.Equal(t, SummaryEntry{Key: "y", Width: 2}, got[1])
}

func TestExtend_SummaryAppendsKeylessEntries(t *testing.T) {
	c := Define(Meta{Name: "preview", Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Title: "orig", Value: 1}}
	}})
	c.Extend(Extension{Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Title: "ext", Value: 2}}
	}})

	got := c.Summary(SummaryContext{Card: c})
	require.Len(t, got, 2)
	assert.Equal(t, SummaryEntry{Title: "orig", Value: 1}, got[0])
	assert.Equal(t, SummaryEntry{Title: "ext", Value: 2}, got[1])
}

func TestExtend_SummaryChainsInOrder(t *testing.T) {
	c := sample()
	c.Extend(Extension{Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Key: "x", Title: "first"}}
	}}).Extend(Extension{Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Key: "x", Value: 3}}
	}})

	got := c.Summary(SummaryContext{Card: c})
	require.Len(t, got, 1)
	assert.Equal(t, SummaryEntry{Key: "x", Title: "first", Value: 3}, got[0])
}

func TestExtend_SummaryOnCardWithoutSummary(t *testing.T) {
	c := Define(Meta{Name: "bare"})
	c.Extend(Extension{Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Key: "k"}}
	}})
	assert.Equal(t, []SummaryEntry{{Key: "k"}}, c.Summary(SummaryContext{}))
}

func TestExtend_I18nDeepMerge(t *testing.T) {
	c := sample()
	c.Extend(Extension{I18n: i18n.Catalog{
		"en":    {"x": map[string]any{"description": "More"}},
		"zh-CN": {"title": "网络请求"},
	}})

	x := c.I18n["en"]["x"].(map[string]any)
	assert.Equal(t, "Ex", x["title"])
	assert.Equal(t, "More", x["description"])
	assert.Equal(t, "Network request", c.I18n["en"]["title"])
	assert.Equal(t, "网络请求", c.I18n["zh-CN"]["title"])
}

func TestExtend_EmptyDeltaIsNoop(t *testing.T) {
	c := sample()
	before := len(c.View.Form)
	assert.Same(t, c, c.Extend(Extension{}))
	assert.Len(t, c.View.Form, before)
}

func TestOverride_ReplacesWholesale(t *testing.T) {
	c := sample()
	held := c
	parent := "action.net"

	c.Override(Override{
		Parent: &parent,
		Args:   []Arg{{Name: "only", Kind: ArgBool}},
		View:   &FormView{Title: "New"},
		I18n:   i18n.Catalog{},
	})

	assert.Equal(t, "action.net", held.Parent, "all holders observe the change")
	assert.Equal(t, []string{"only"}, held.ArgNames())
	assert.Empty(t, held.View.Form)
	assert.Equal(t, "New", held.View.Title)
	assert.Empty(t, held.I18n)
	assert.Equal(t, "fetch_action", held.Name, "absent fields are untouched")
}

func TestArgNames_DeclarationOrder(t *testing.T) {
	c := Define(Meta{Args: []Arg{
		{Name: "z", Kind: ArgString},
		{Name: "a", Fields: []Arg{{Name: "inner", Kind: ArgInt}}},
		{Name: "m", Kind: ArgBool},
	}})
	assert.Equal(t, []string{"z", "a", "m"}, c.ArgNames())
}

func TestRenderSummary_FillsTitleAndValue(t *testing.T) {
	c := sample()
	c.Extend(Extension{Summary: func(SummaryContext) []SummaryEntry {
		return []SummaryEntry{{Key: "url"}}
	}})

	got := c.RenderSummary(Instance{ID: "1", Data: map[string]any{"url": "https://a"}}, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "Ex", got[0].Title)
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, "url", got[1].Title)
	assert.Equal(t, "https://a", got[1].Value)
}

func TestBranchJSON(t *testing.T) {
	c := sample()
	data, err := json.Marshal(c.Branches)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"branch":"source","type":"source","id":"Result","position":"left"},
		{"branch":"Success","type":"primary","id":"Result","position":"right",
		 "plug":{"kind":"object","fields":[{"name":"body","type":"string"}]}}
	]`, string(data))

	var back []Branch
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, shape.Equal(c.Branches[1].Plug, back[1].Plug))
	assert.Nil(t, back[0].Plug)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	a := sample()
	b := Define(Meta{Parent: "trigger.time", Name: "cron_trigger"})

	require.NoError(t, r.Register(a, b))
	assert.ErrorIs(t, r.Register(Define(Meta{Name: "fetch_action"})), ErrDuplicate)

	got, ok := r.Lookup("fetch_action")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []*Meta{a, b}, r.Cards())
	assert.Equal(t, []*Meta{a}, r.Under("action"))
	assert.Equal(t, []*Meta{b}, r.Under("trigger"))

	require.NoError(t, r.Extend("fetch_action", Extension{View: &ViewExtension{Title: "T"}}))
	assert.Equal(t, "T", a.View.Title, "registered handle sees extension")
	assert.ErrorIs(t, r.Extend("missing", Extension{}), ErrNotFound)

	renamed := "http_action"
	require.NoError(t, r.Override("fetch_action", Override{Name: &renamed}))
	_, ok = r.Lookup("fetch_action")
	assert.False(t, ok)
	got, ok = r.Lookup("http_action")
	require.True(t, ok)
	assert.Same(t, a, got)

	taken := "cron_trigger"
	assert.ErrorIs(t, r.Override("http_action", Override{Name: &taken}), ErrDuplicate)

	r.Seal()
	assert.True(t, r.Sealed())
	assert.ErrorIs(t, r.Register(Define(Meta{Name: "late"})), ErrSealed)
	assert.ErrorIs(t, r.Extend("http_action", Extension{}), ErrSealed)
	assert.ErrorIs(t, r.Override("http_action", Override{}), ErrSealed)
}

func TestRegistry_ConcurrentReadsAfterSeal(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, r.Register(sample()))
	r.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Lookup("fetch_action")
			assert.True(t, ok)
			assert.Len(t, r.Cards(), 1)
		}()
	}
	wg.Wait()
}

func TestDisplayNames(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	r.RegisterDisplayName("action")("program", map[string]string{
		"zh-CN": "可编程", "en": "Programmable",
	})("debug", map[string]string{"zh-CN": "调试使用"})

	assert.Equal(t, "可编程", r.DisplayName("action.program", "zh-CN"))
	assert.Equal(t, "Programmable", r.DisplayName("action.program", "fr"))
	assert.Equal(t, "debug", r.DisplayName("action.debug", "en"), "no English name falls back to the segment")
	assert.Equal(t, "web", r.DisplayName("action.web", "en"))
}
