package i18n

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no requested locale matches the catalog.
const DefaultLocale = "en"

// builtins are merged underneath every catalog.
var builtins = Catalog{
	"en": {"nth": "1st | 2nd | 3rd | {0}th"},
}

// dateLayouts renders D() per locale; unknown locales use the fallback's.
var dateLayouts = map[string]string{
	"en":    "Jan 2, 2006",
	"zh-CN": "2006年1月2日",
}

// Translator resolves messages for one active locale with a fallback.
// It is safe for concurrent reads; SetLocale takes a write lock.
type Translator struct {
	mu       sync.RWMutex
	catalog  Catalog
	locales  []string
	matcher  language.Matcher
	locale   string
	fallback string
	logger   *zap.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithFallback sets the fallback locale. Defaults to DefaultLocale.
func WithFallback(locale string) Option {
	return func(t *Translator) { t.fallback = locale }
}

// WithLogger sets the logger used for missing-key diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(t *Translator) { t.logger = l }
}

// New creates a Translator over a copy of catalog with locale active.
func New(catalog Catalog, locale string, opts ...Option) *Translator {
	merged := builtins.Clone()
	// Builtins never conflict with a decodable catalog; a merge error here
	// would mean a malformed catalog tree, which keeps its own values.
	_ = Merge(merged, catalog)

	t := &Translator{
		catalog:  merged,
		fallback: DefaultLocale,
		logger:   zap.L(),
	}
	for _, opt := range opts {
		opt(t)
	}

	// The fallback goes first so the matcher prefers it on ties.
	t.locales = []string{t.fallback}
	for _, l := range merged.Locales() {
		if l != t.fallback {
			t.locales = append(t.locales, l)
		}
	}
	tags := make([]language.Tag, len(t.locales))
	for i, l := range t.locales {
		tags[i] = language.Make(l)
	}
	t.matcher = language.NewMatcher(tags)
	t.locale = t.match(locale)
	return t
}

func (t *Translator) match(requested string) string {
	if requested == "" {
		return t.fallback
	}
	for _, l := range t.locales {
		if l == requested {
			return l
		}
	}
	_, idx, conf := t.matcher.Match(language.Make(requested))
	if conf == language.No {
		return t.fallback
	}
	return t.locales[idx]
}

// SetLocale switches the active locale to the best catalog match.
func (t *Translator) SetLocale(locale string) {
	m := t.match(locale)
	t.mu.Lock()
	t.locale = m
	t.mu.Unlock()
}

// Locale returns the active locale.
func (t *Translator) Locale() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locale
}

// TM returns the raw message at key in the active locale, then the fallback.
func (t *Translator) TM(key string) (any, bool) {
	locale := t.Locale()
	if v, ok := lookup(t.catalog[locale], key); ok {
		return v, true
	}
	if locale != t.fallback {
		if v, ok := lookup(t.catalog[t.fallback], key); ok {
			return v, true
		}
	}
	return nil, false
}

// TE reports whether key has a message in the active or fallback locale.
func (t *Translator) TE(key string) bool {
	_, ok := t.TM(key)
	return ok
}

// T translates key. Arguments may be:
//   - an integer: plural choice (also exposed as {n} and {count})
//   - []any: list arguments for {0}, {1}, ...
//   - map[string]any: named arguments for {name}
//
// A missing key, or one that names a subtree, echoes the key.
func (t *Translator) T(key string, args ...any) string {
	v, ok := t.TM(key)
	msg, isString := v.(string)
	if !ok || !isString {
		t.logger.Debug("missing translation",
			zap.String("key", key),
			zap.String("locale", t.Locale()),
		)
		return key
	}
	return t.render(msg, parseArgs(args), 0)
}

// RT renders a raw message with the same argument rules as T.
func (t *Translator) RT(msg string, args ...any) string {
	return t.render(msg, parseArgs(args), 0)
}

// N formats a number for the active locale.
func (t *Translator) N(v any) string {
	p := message.NewPrinter(language.Make(t.Locale()))
	return p.Sprintf("%v", number.Decimal(v))
}

// D formats a date for the active locale.
func (t *Translator) D(tm time.Time) string {
	layout, ok := dateLayouts[t.Locale()]
	if !ok {
		layout = dateLayouts[DefaultLocale]
	}
	return tm.Format(layout)
}

// Funcs lists the function names Call accepts, in lookup priority order.
var Funcs = []string{"t", "rt", "d", "n", "te", "tm"}

// Call invokes a translation function by name with positional args, as
// used by function-object display declarations. ok is false for unknown
// names or an unusable first argument.
func (t *Translator) Call(fn string, args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	switch fn {
	case "t":
		key, ok := args[0].(string)
		if !ok {
			return "", false
		}
		return t.T(key, args[1:]...), true
	case "rt":
		msg, ok := args[0].(string)
		if !ok {
			return "", false
		}
		return t.RT(msg, args[1:]...), true
	case "te":
		key, ok := args[0].(string)
		if !ok {
			return "", false
		}
		return strconv.FormatBool(t.TE(key)), true
	case "tm":
		key, ok := args[0].(string)
		if !ok {
			return "", false
		}
		v, _ := t.TM(key)
		if s, isString := v.(string); isString {
			return s, true
		}
		return key, true
	case "n":
		return t.N(args[0]), true
	case "d":
		switch v := args[0].(type) {
		case time.Time:
			return t.D(v), true
		case string:
			tm, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return v, true
			}
			return t.D(tm), true
		}
		return "", false
	}
	return "", false
}

type msgArgs struct {
	list   []any
	named  map[string]any
	choice int
	plural bool
}

func parseArgs(args []any) msgArgs {
	var out msgArgs
	for _, a := range args {
		switch v := a.(type) {
		case []any:
			out.list = v
		case []string:
			for _, s := range v {
				out.list = append(out.list, s)
			}
		case map[string]any:
			out.named = v
		default:
			if n, ok := asInt(a); ok && !out.plural {
				out.choice = n
				out.plural = true
			}
		}
	}
	if out.plural {
		named := make(map[string]any, len(out.named)+2)
		for k, v := range out.named {
			named[k] = v
		}
		out.named = named
		if _, ok := out.named["n"]; !ok {
			out.named["n"] = out.choice
		}
		if _, ok := out.named["count"]; !ok {
			out.named["count"] = out.choice
		}
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

var (
	linkRe        = regexp.MustCompile(`@:\(?([\w.\-]+)\)?`)
	placeholderRe = regexp.MustCompile(`\{\s*([^{}\s]+)\s*\}`)
)

// maxLinkDepth bounds @:key expansion so cyclic links terminate.
const maxLinkDepth = 8

func (t *Translator) render(msg string, args msgArgs, depth int) string {
	if args.plural {
		msg = t.choose(msg, args.choice)
	}

	if depth < maxLinkDepth && strings.Contains(msg, "@:") {
		msg = linkRe.ReplaceAllStringFunc(msg, func(m string) string {
			key := linkRe.FindStringSubmatch(m)[1]
			v, ok := t.TM(key)
			s, isString := v.(string)
			if !ok || !isString {
				return key
			}
			return t.render(s, args, depth+1)
		})
	}

	return placeholderRe.ReplaceAllStringFunc(msg, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
			return name[1 : len(name)-1]
		}
		if i, err := strconv.Atoi(name); err == nil {
			if i >= 0 && i < len(args.list) {
				return fmt.Sprint(args.list[i])
			}
			return ""
		}
		if v, ok := args.named[name]; ok {
			return fmt.Sprint(v)
		}
		return ""
	})
}

// choose selects one branch of a "a | b | c" message.
func (t *Translator) choose(msg string, choice int) string {
	parts := strings.Split(msg, "|")
	if len(parts) == 1 {
		return msg
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	idx := t.pluralIndex(choice, len(parts))
	if idx < 0 || idx >= len(parts) {
		idx = len(parts) - 1
	}
	return parts[idx]
}

func (t *Translator) pluralIndex(choice, n int) int {
	if t.Locale() == "en" && n == 4 {
		return ordinalIndex(choice, n)
	}
	return defaultPluralIndex(choice, n)
}

// ordinalIndex is the English ordinal rule for "1st | 2nd | 3rd | {0}th".
func ordinalIndex(choice, n int) int {
	if choice >= 0 && choice < 3 {
		return choice
	}
	return n - 1
}

func defaultPluralIndex(choice, n int) int {
	if choice < 0 {
		choice = -choice
	}
	if n == 2 {
		if choice == 1 {
			return 0
		}
		return 1
	}
	if choice > 2 {
		return 2
	}
	return choice
}

// lookup walks a dotted key through a message tree. A literal key
// containing dots is tried first.
func lookup(tree map[string]any, key string) (any, bool) {
	if tree == nil || key == "" {
		return nil, false
	}
	if v, ok := tree[key]; ok {
		return v, true
	}
	var cur any = tree
	for _, seg := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
