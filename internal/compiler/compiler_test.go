package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/shape"
)

const fetchSource = `
card: fetch_action: {
	parent: "action.web"
	args: {
		url:     "String"
		timeout: "Int"
		headers: {
			accept: "String"
		}
	}
	branches: [
		{branch: "source", type: "source", id: "Result", position: "left"},
		{branch: "Success", type: "primary", id: "Result", position: "right",
			plug: {kind: "object", fields: [{name: "body", type: "string"}]}},
	]
	view: {
		title: "fetch"
		form: [
			{name: "url", type: "String", plug: ["Success"]},
			{name: "method", type: "Option", data: [{label: "Get", value: "Get"}]},
			{name: "timeout", type: "Number", display: "time.title"},
		]
	}
	summary: ["url", {key: "timeout", width: 2}]
	i18n: {
		en: {title: "Network request", url: {title: "Request URL"}}
		"zh-CN": {title: "网络请求"}
	}
}

card: cron_trigger: {
	parent: "trigger.time"
}
`

func TestCompileSource(t *testing.T) {
	cards, err := CompileSource("fetch.cue", []byte(fetchSource))
	require.NoError(t, err)
	require.Len(t, cards, 2)

	c := cards[0]
	assert.Equal(t, "fetch_action", c.Name)
	assert.Equal(t, "action.web", c.Parent)
	assert.Equal(t, []string{"url", "timeout", "headers"}, c.ArgNames())
	assert.Equal(t, []card.Arg{{Name: "accept", Kind: card.ArgString}}, c.Args[2].Fields)

	require.Len(t, c.Branches, 2)
	assert.Equal(t, card.Right, c.Branches[1].Position)
	assert.True(t, shape.Equal(
		shape.MakeObject(shape.Field{Name: "body", Type: shape.MakePrimitive(shape.KindString)}),
		c.Branches[1].Plug,
	))
	assert.Nil(t, c.Branches[0].Plug)

	assert.Equal(t, "fetch", c.View.Title)
	require.Len(t, c.View.Form, 3)
	assert.Equal(t, []string{"Success"}, c.View.Form[0].Plug)
	assert.Equal(t, []form.Choice{{Label: "Get", Value: "Get"}}, c.View.Form[1].Data.Options)
	assert.Equal(t, form.Display{Key: "time.title"}, c.View.Form[2].Display)

	require.NotNil(t, c.Summary)
	assert.Equal(t, []card.SummaryEntry{{Key: "url"}, {Key: "timeout", Width: 2}}, c.Summary(card.SummaryContext{}))

	assert.Equal(t, "Network request", c.I18n["en"]["title"])
	assert.Equal(t, "网络请求", c.I18n["zh-CN"]["title"])

	assert.Equal(t, "cron_trigger", cards[1].Name)
	assert.NotNil(t, cards[1].I18n)
	assert.Empty(t, Validate(c))
}

func TestCompileCard_MissingParent(t *testing.T) {
	v := cuecontext.New().CompileString(`card: bad: { args: {} }`, cue.Filename("bad.cue"))
	require.NoError(t, v.Err())

	_, err := CompileCard(v.LookupPath(cue.ParsePath("card.bad")))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "parent", ce.Field)
	assert.Contains(t, err.Error(), "bad.cue:1:")
}

func TestCompileCard_BadArg(t *testing.T) {
	_, err := CompileSource("bad.cue", []byte(`card: bad: { parent: "action.x", args: { n: 3 } }`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "args.n")
}

func TestCompileSource_Errors(t *testing.T) {
	_, err := CompileSource("syntax.cue", []byte(`card: {`))
	require.Error(t, err)

	_, err = CompileSource("empty.cue", []byte(`other: 1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no card struct")
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		card card.Meta
		want []string
	}{
		{"valid", card.Meta{Parent: "action.web", Name: "fetch_action"}, []string{}},
		{"parent", card.Meta{Parent: "web", Name: "x"}, []string{ErrInvalidParent}},
		{"name", card.Meta{Parent: "action.web", Name: "Fetch"}, []string{ErrInvalidName}},
		{"arg kind", card.Meta{Parent: "action.web", Name: "x", Args: []card.Arg{{Name: "a", Kind: "Date"}}}, []string{ErrInvalidArgKind}},
		{"nested arg kind", card.Meta{Parent: "action.web", Name: "x", Args: []card.Arg{{Name: "a", Fields: []card.Arg{{Name: "b", Kind: "?"}}}}}, []string{ErrInvalidArgKind}},
		{"dup arg", card.Meta{Parent: "action.web", Name: "x", Args: []card.Arg{{Name: "a", Kind: "Int"}, {Name: "a", Kind: "Int"}}}, []string{ErrDuplicateArg}},
		{"dup branch", card.Meta{Parent: "action.web", Name: "x", Branches: []card.Branch{
			{Name: "S", Position: card.Left}, {Name: "S", Position: card.Right},
		}}, []string{ErrInvalidBranch}},
		{"position", card.Meta{Parent: "action.web", Name: "x", Branches: []card.Branch{{Name: "S", Position: "middle"}}}, []string{ErrInvalidPosition}},
		{"field type", card.Meta{Parent: "action.web", Name: "x", View: card.FormView{Form: []form.Field{{Name: "a", Type: "Color"}}}}, []string{ErrInvalidFieldType}},
		{"dup field", card.Meta{Parent: "action.web", Name: "x", View: card.FormView{Form: []form.Field{
			{Name: "a", Type: form.String}, {Name: "a", Type: form.String},
		}}}, []string{ErrDuplicateField}},
		{"option", card.Meta{Parent: "action.web", Name: "x", View: card.FormView{Form: []form.Field{{Name: "a", Type: form.Option}}}}, []string{ErrOptionWithoutChoice}},
		{"plug branch", card.Meta{Parent: "action.web", Name: "x", View: card.FormView{Form: []form.Field{
			{Name: "a", Type: form.String, Plug: []string{"Nope"}},
		}}}, []string{ErrInvalidBranch}},
		{"title", card.Meta{Parent: "action.web", Name: "x", I18n: map[string]map[string]any{"zh-CN": {}}}, []string{ErrMissingTitle, ErrMissingTitle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := codes(Validate(&tt.card))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_UnsupportedType(t *testing.T) {
	assert.Equal(t, []string{ErrUnsupportedType}, codes(Validate(42)))
}

func TestValidateAll_DuplicateNames(t *testing.T) {
	a := card.Define(card.Meta{Parent: "action.web", Name: "x"})
	b := card.Define(card.Meta{Parent: "action.net", Name: "x"})

	got := ValidateAll([]*card.Meta{a, b})
	assert.Equal(t, []string{ErrInvalidName}, codes(got["x"]))
}

func TestValidationError_Format(t *testing.T) {
	e := ValidationError{Field: "parent", Message: "bad", Code: ErrInvalidParent}
	assert.Equal(t, "[E101] parent: bad", e.Error())
	e.Line = 3
	assert.Equal(t, "[E101] line 3: parent: bad", e.Error())
}
