package cards

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/plug"
)

func load(t *testing.T, dirs ...string) *card.Registry {
	t.Helper()
	reg, err := Load(Options{Logger: zaptest.NewLogger(t), Dirs: dirs, Strict: true})
	require.NoError(t, err)
	return reg
}

func names(cards []*card.Meta) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Name
	}
	return out
}

func TestLoad_Builtins(t *testing.T) {
	reg := load(t)

	assert.Equal(t, []string{"fetch_action", "inject_context_action", "program_action", "cron_trigger"}, names(reg.Cards()))
	assert.Equal(t, []string{"fetch_action", "inject_context_action", "program_action"}, names(reg.Under("action")))
	assert.Equal(t, []string{"cron_trigger"}, names(reg.Under("trigger")))
	assert.True(t, reg.Sealed())
	assert.ErrorIs(t, reg.Extend("fetch_action", card.Extension{}), card.ErrSealed)
}

func TestLoad_DisplayNames(t *testing.T) {
	reg := load(t)
	assert.Equal(t, "Web Related", reg.DisplayName("action.web", "en"))
	assert.Equal(t, "时间相关", reg.DisplayName("trigger.time", "zh-CN"))
	assert.Equal(t, "debug", reg.DisplayName("action.debug", "en"))
}

func TestFetch_FormatterSendsWholeSeconds(t *testing.T) {
	reg := load(t)
	c, ok := reg.Lookup("fetch_action")
	require.True(t, ok)

	p := form.NewPipeline(zaptest.NewLogger(t))
	env, err := p.Collect(c.View.Form, map[string]any{
		"url":     plug.MarkAsPlug(ir.Path{"card-1", "Success", "a", "hello"}, ""),
		"method":  "Get",
		"timeout": "30",
	}, c.View.Formatter)
	require.NoError(t, err)

	data, err := ir.MarshalCanonical(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Json","value":{
		"url": {"type":"Plug","value":{"type":"String","key":["Success","a","hello"]}},
		"method": "Get",
		"timeout": 30
	}}`, string(data))
}

func TestFetch_PlugCompatibility(t *testing.T) {
	reg := load(t)
	c, _ := reg.Lookup("fetch_action")

	success, ok := c.Branch("Success")
	require.True(t, ok)
	url, _ := c.Field("url")
	timeout, _ := c.Field("timeout")

	obj := success.Plug
	assert.False(t, url.CanWire("Success", obj), "objects never wire into inputs")
	assert.False(t, timeout.CanWire("Success", obj))
}

func TestFetch_SummaryLocalizesMethod(t *testing.T) {
	reg := load(t)
	c, _ := reg.Lookup("fetch_action")
	inst := card.Instance{ID: "1", Data: map[string]any{"url": "https://a", "method": "Get"}}

	en := c.RenderSummary(inst, c.Translator("en"))
	require.Len(t, en, 5)
	assert.Equal(t, card.SummaryEntry{Key: "url", Title: "Request URL", Value: "https://a"}, en[0])
	assert.Equal(t, card.SummaryEntry{Key: "method", Title: "Request Method", Value: "Get"}, en[1])

	zh := c.RenderSummary(inst, c.Translator("zh-CN"))
	assert.Equal(t, "获取", zh[1].Value)
	assert.Equal(t, "请求方法", zh[1].Title)
}

func TestProgram_Summary(t *testing.T) {
	reg := load(t)
	c, _ := reg.Lookup("program_action")

	got := c.RenderSummary(card.Instance{Data: map[string]any{"code": "1+1", "lang": "JavaScript"}}, nil)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Width)
	assert.Equal(t, "Code content", got[0].Title)
}

func TestInjectContext_EnglishAdded(t *testing.T) {
	reg := load(t)
	c, _ := reg.Lookup("inject_context_action")

	assert.Equal(t, "Inject context", c.Title(c.Translator("en")))
	assert.Equal(t, "注入context", c.Title(c.Translator("zh-CN")))
}

func TestCron_FormatterAndSummary(t *testing.T) {
	reg := load(t)
	c, _ := reg.Lookup("cron_trigger")

	assert.Equal(t, ir.String("0 * * * *"), c.View.Formatter(map[string]any{"cron": "0 * * * *"}))

	got := c.RenderSummary(card.Instance{Data: "0 * * * *"}, c.Translator("en"))
	require.Len(t, got, 1)
	assert.Equal(t, card.SummaryEntry{Key: "cron", Title: "Cron Expression", Value: "0 * * * *"}, got[0])

	tr := c.Translator("en")
	assert.Equal(t, "The 2nd trigger", tr.T("cron.time", []any{2}, 1))
}

func TestCron_ResolvedForm(t *testing.T) {
	reg := load(t)
	c, _ := reg.Lookup("cron_trigger")

	p := form.NewPipeline(zaptest.NewLogger(t))
	resolved := p.ResolveForm(c.Translator("en"), c.View.Form)
	require.Len(t, resolved, 1)
	assert.Equal(t, "Cron Expression", resolved[0].Label)
	assert.Equal(t, "Please enter a Cron expression", resolved[0].Data.Placeholder)
}

func TestLoad_ExtraDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.cue"), []byte(`
card: echo_action: {
	parent: "action.debug"
	args: text: "String"
	i18n: en: title: "Echo"
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg := load(t, dir)
	c, ok := reg.Lookup("echo_action")
	require.True(t, ok)
	assert.Equal(t, "echo_action", names(reg.Cards())[4])
	assert.Equal(t, []string{"text"}, c.ArgNames())
}

func TestLoad_CatalogFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fetch_action.i18n.yaml"), []byte(`
fr:
  title: Requête réseau
en:
  url:
    title: Target URL
`), 0o644))

	reg := load(t, dir)
	c, ok := reg.Lookup("fetch_action")
	require.True(t, ok)
	assert.Equal(t, "Requête réseau", c.Title(c.Translator("fr")))
	assert.Equal(t, "Network request", c.Title(c.Translator("en")), "merge keeps existing messages")
	assert.Equal(t, "Target URL", c.Translator("en").T("url.title"))
}

func TestLoad_CatalogForUnknownCard(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nope_action.i18n.yaml"), []byte("en:\n  title: x\n"), 0o644))

	_, err := Load(Options{Logger: zaptest.NewLogger(t), Dirs: []string{dir}})
	assert.ErrorIs(t, err, card.ErrNotFound)
}

func TestLoad_DuplicateInExtraDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.cue"), []byte(`card: fetch_action: parent: "action.web"`), 0o644))

	_, err := Load(Options{Logger: zaptest.NewLogger(t), Dirs: []string{dir}})
	assert.ErrorIs(t, err, card.ErrDuplicate)
}

func TestLoad_StrictRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(`card: bad_action: parent: "misc"`), 0o644))

	_, err := Load(Options{Logger: zaptest.NewLogger(t), Dirs: []string{dir}, Strict: true})
	assert.Error(t, err)

	reg, err := Load(Options{Logger: zaptest.NewLogger(t), Dirs: []string{dir}})
	require.NoError(t, err, "non-strict load only logs")
	_, ok := reg.Lookup("bad_action")
	assert.True(t, ok)
}
