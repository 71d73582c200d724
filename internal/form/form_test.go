package form

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/plug"
	"github.com/roach88/daisy/internal/shape"
)

func translator(t *testing.T, catalog i18n.Catalog) *i18n.Translator {
	t.Helper()
	return i18n.New(catalog, "en", i18n.WithLogger(zaptest.NewLogger(t)))
}

func fetchFields() []Field {
	return []Field{
		{Name: "url", Type: String},
		{Name: "method", Type: Option, Data: Data{Options: []Choice{
			{Label: "Get", Value: "Get"},
			{Label: "Post", Value: "Post"},
		}}},
		{Name: "timeout", Type: Number},
		{Name: "proxy", Type: String, Optional: true},
		{Name: "http2", Type: Switch, Optional: true},
	}
}

func fetchCatalog() i18n.Catalog {
	return i18n.Catalog{
		"en": {
			"url":     map[string]any{"title": "Request URL"},
			"method":  map[string]any{"title": "Request Method"},
			"timeout": map[string]any{"title": "Timeout"},
			"proxy":   map[string]any{"title": "Network Proxy", "placeholder": "http://host:port"},
			"http2":   map[string]any{"title": "Enable http2"},
		},
	}
}

func TestResolveDisplay_FallbackChain(t *testing.T) {
	tr := translator(t, i18n.Catalog{"en": {"name": map[string]any{"title": "Hello"}}})

	got := ResolveDisplay(tr, Field{Name: "name", Display: Display{Key: "greeting"}}, []string{"name.title"})
	assert.Equal(t, "Hello", got)
}

func TestResolveDisplay_NoTranslationUsesFirstFallback(t *testing.T) {
	tr := translator(t, i18n.Catalog{})
	got := ResolveDisplay(tr, Field{Name: "x"}, []string{"x", "x.title"})
	assert.Equal(t, "x", got)
}

func TestResolveDisplay_DeclaredKeyWins(t *testing.T) {
	tr := translator(t, i18n.Catalog{"en": {"custom": "Custom", "x": map[string]any{"title": "X"}}})
	got := ResolveDisplay(tr, Field{Name: "x", Display: Display{Key: "custom"}}, []string{"x", "x.title"})
	assert.Equal(t, "Custom", got)
}

func TestResolveDisplay_CallAndFunc(t *testing.T) {
	tr := translator(t, i18n.Catalog{"en": {"count": "{0} items"}})

	got := ResolveDisplay(tr, Field{Display: Display{Call: []any{"count", []any{3}}}}, nil)
	assert.Equal(t, "3 items", got)

	got = ResolveDisplay(tr, Field{Display: Display{Func: "rt", Args: []any{"raw {0}", []any{"x"}}}}, nil)
	assert.Equal(t, "raw x", got)

	got = ResolveDisplay(tr, Field{Display: Display{Func: "n", Args: []any{1500}}}, nil)
	assert.Equal(t, "1,500", got)
}

func TestDisplay_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want Display
	}{
		{`"title"`, Display{Key: "title"}},
		{`["count", 2]`, Display{Call: []any{"count", float64(2)}}},
		{`{"rt": "raw"}`, Display{Func: "rt", Args: []any{"raw"}}},
		{`{"tm": ["a"], "t": ["b"]}`, Display{Func: "t", Args: []any{"b"}}},
		{`null`, Display{}},
	}
	for _, tt := range tests {
		var d Display
		require.NoError(t, json.Unmarshal([]byte(tt.in), &d), tt.in)
		assert.Equal(t, tt.want, d, tt.in)
	}

	var d Display
	assert.Error(t, json.Unmarshal([]byte(`{"bogus": 1}`), &d))
	assert.Error(t, json.Unmarshal([]byte(`3`), &d))
}

func TestField_DataAcceptsOptionList(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "method", "type": "Option",
		"data": [{"label": "Get", "value": "Get"}]
	}`), &f))
	assert.Equal(t, []Choice{{Label: "Get", Value: "Get"}}, f.Data.Options)
}

func TestResolveForm_DoesNotMutateDeclaration(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	tr := translator(t, fetchCatalog())
	fields := fetchFields()

	resolved := p.ResolveForm(tr, fields)

	assert.Equal(t, "Request URL", resolved[0].Label)
	assert.Empty(t, fields[0].Label)
	assert.Equal(t, fetchFields(), fields)
}

func TestResolveForm_Golden(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	tr := translator(t, fetchCatalog())

	resolved := p.ResolveForm(tr, fetchFields())
	data, err := ir.MarshalCanonical(resolved)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "fetch_form", data)
}

func TestPlaceholderInference(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	tr := translator(t, i18n.Catalog{"en": {
		"a":    map[string]any{"placeholder": "Type A"},
		"hint": "Translated hint",
	}})

	a := p.ResolveField(tr, Field{Name: "a", Type: String})
	assert.Equal(t, "Type A", a.Data.Placeholder)

	b := p.ResolveField(tr, Field{Name: "b", Type: Number})
	assert.Empty(t, b.Data.Placeholder, "untranslated placeholder key is not shown")

	c := p.ResolveField(tr, Field{Name: "c", Type: String, Data: Data{Placeholder: "hint"}})
	assert.Equal(t, "Translated hint", c.Data.Placeholder)

	d := p.ResolveField(tr, Field{Name: "a", Type: Code})
	assert.Empty(t, d.Data.Placeholder, "only String and Number infer placeholders")
}

func TestProcessValue_Number(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	f := Field{Name: "timeout", Type: Number}

	for in, want := range map[any]float64{"30": 30, " 1.5 ": 1.5, "": 0, 7: 7, true: 1} {
		got, err := p.ProcessValue(f, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := p.ProcessValue(f, "abc")
	assert.ErrorIs(t, err, ErrInvalidNumber)

	got, err := p.ProcessValue(Field{Name: "s", Type: String}, "30")
	require.NoError(t, err)
	assert.Equal(t, "30", got, "String fields pass through")
}

func TestProcessValue_Plug(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))

	w := plug.MarkAsPlug(ir.Path{"card-1", "Success", "a", "hello"}, "old")
	got, err := p.ProcessValue(Field{Name: "url", Type: String}, w)
	require.NoError(t, err)
	assert.Equal(t, ir.Plug{Ref: ir.KindString, Path: ir.Path{"Success", "a", "hello"}}, got)

	// A wired Number field is rewritten, not coerced.
	w = plug.MarkAsPlug(ir.Path{"card-1", "n"}, nil)
	w.Kind = ir.KindInt
	got, err = p.ProcessValue(Field{Name: "timeout", Type: Number}, plug.Wired(w))
	require.NoError(t, err)
	assert.Equal(t, ir.Plug{Ref: ir.KindInt, Path: ir.Path{"n"}}, got)
}

func TestCollect(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	model := map[string]any{
		"url":     plug.MarkAsPlug(ir.Path{"src", "Success", "href"}, ""),
		"method":  "Get",
		"timeout": "30",
		"extra":   true,
	}

	env, err := p.Collect(fetchFields(), model, nil)
	require.NoError(t, err)

	data, err := ir.MarshalEnvelope(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Json","value":{
		"url": {"type":"Plug","value":{"type":"String","key":["Success","href"]}},
		"method": "Get",
		"timeout": 30,
		"extra": true
	}}`, string(data))
}

func TestCollect_ValueVariants(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	model := map[string]any{
		"url":     plug.Wired(plug.MarkAsPlug(ir.Path{"src", "Success", "href"}, plug.Literal("typed"))),
		"method":  plug.Literal("Post"),
		"timeout": plug.Literal(5),
	}

	env, err := p.Collect(fetchFields(), model, nil)
	require.NoError(t, err)

	data, err := ir.MarshalEnvelope(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Json","value":{
		"url": {"type":"Plug","value":{"type":"String","key":["Success","href"]}},
		"method": "Post",
		"timeout": 5
	}}`, string(data))
}

func TestCollect_CustomFormatter(t *testing.T) {
	p := NewPipeline(zaptest.NewLogger(t))
	env, err := p.Collect(fetchFields(), map[string]any{"url": "https://x"}, func(v map[string]any) ir.Envelope {
		return ir.ToEnvelope(v["url"])
	})
	require.NoError(t, err)
	assert.Equal(t, ir.String("https://x"), env)
}

func TestDefaults(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fields := append(fetchFields(),
		Field{Name: "code", Type: Code},
		Field{Name: "when", Type: Date},
		Field{Name: "span", Type: Range},
		Field{Name: "lang", Type: Option, DefaultValue: "JavaScript"},
	)

	got := Defaults(fields, now)
	assert.Equal(t, map[string]any{
		"url":     "",
		"method":  "",
		"timeout": 0.0,
		"proxy":   "",
		"http2":   false,
		"code":    "\n\n\n",
		"when":    now,
		"span":    []any{0.0, 1.0},
		"lang":    "JavaScript",
	}, got)
}

func TestMergeList(t *testing.T) {
	fields := []Field{{Name: "a", Type: String}}

	out, err := MergeList(fields, []Field{{Name: "a", Optional: true}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Optional)
	assert.Equal(t, String, out[0].Type, "unset extension fields keep the original")

	out, err = MergeList(out, []Field{{Name: "a", Optional: false}})
	require.NoError(t, err)
	assert.True(t, out[0].Optional, "a zero field never clears")

	out, err = MergeList(out, []Field{{Name: "b", Type: Number}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].Name)
}

func TestMerge_DisplayReplacedWholesale(t *testing.T) {
	f := Field{Name: "a", Display: Display{Call: []any{"x", 1}}}
	require.NoError(t, Merge(&f, Field{Name: "a", Display: Display{Key: "y"}}))
	assert.Equal(t, Display{Key: "y"}, f.Display)

	require.NoError(t, Merge(&f, Field{Name: "a"}))
	assert.Equal(t, Display{Key: "y"}, f.Display, "zero display keeps the original")
}

func TestCanWire(t *testing.T) {
	str := shape.MakePrimitive(shape.KindString)
	f := Field{Name: "url", Type: String}
	assert.True(t, f.CanWire("Success", str))
	assert.False(t, f.CanWire("Success", shape.MakePrimitive(shape.KindNumber)))

	f.Plug = []string{"Error"}
	assert.False(t, f.CanWire("Success", str))
	assert.True(t, f.CanWire("Error", str))
}
