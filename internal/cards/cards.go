// Package cards is the built-in card set: CUE declarations embedded from
// defs/ plus Go-side extensions that declarations cannot express
// (formatters, computed summaries, extra locales).
package cards

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/compiler"
	"github.com/roach88/daisy/internal/i18n"
)

//go:embed defs/*.cue
var defs embed.FS

// Options configures Load.
type Options struct {
	Logger *zap.Logger
	// Dirs holds extra directories of .cue card files, loaded after the
	// built-in cards in lexical file order. A <card>.i18n.yaml file in the
	// same directory merges extra messages into that card's catalog.
	Dirs []string
	// Strict fails Load on validation errors instead of logging them.
	Strict bool
}

// builtinOrder fixes the enumeration order of the built-in cards:
// actions first, then triggers.
var builtinOrder = []string{"fetch.cue", "inject_context.cue", "program.cue", "cron.cue"}

// Load compiles the built-in cards and any extra directories, applies the
// Go extensions, registers namespace display names and seals the
// registry.
func Load(opts Options) (*card.Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	reg := card.NewRegistry(log)

	for _, name := range builtinOrder {
		src, err := fs.ReadFile(defs, "defs/"+name)
		if err != nil {
			return nil, fmt.Errorf("read builtin %s: %w", name, err)
		}
		if err := compileInto(reg, name, src); err != nil {
			return nil, err
		}
	}

	for _, dir := range opts.Dirs {
		files, err := CardFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read card file: %w", err)
			}
			if err := compileInto(reg, path, src); err != nil {
				return nil, err
			}
			log.Debug("card file loaded", zap.String("path", path))
		}
	}

	if err := applyExtensions(reg); err != nil {
		return nil, err
	}
	for _, dir := range opts.Dirs {
		if err := loadCatalogs(reg, dir, log); err != nil {
			return nil, err
		}
	}
	registerDisplayNames(reg)

	problems := compiler.ValidateAll(reg.Cards())
	for _, name := range sortedKeys(problems) {
		for _, p := range problems[name] {
			log.Warn("card validation", zap.String("card", name), zap.String("code", p.Code), zap.String("field", p.Field), zap.String("message", p.Message))
		}
	}
	if opts.Strict && len(problems) > 0 {
		return nil, fmt.Errorf("%d card(s) failed validation", len(problems))
	}

	reg.Seal()
	return reg, nil
}

func compileInto(reg *card.Registry, filename string, src []byte) error {
	metas, err := compiler.CompileSource(filename, src)
	if err != nil {
		return fmt.Errorf("compile %s: %w", filename, err)
	}
	if err := reg.Register(metas...); err != nil {
		return fmt.Errorf("register %s: %w", filename, err)
	}
	return nil
}

// CardFiles lists the .cue files of dir in lexical order.
func CardFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read card dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cue") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// CatalogSuffix names the locale files of a card directory.
const CatalogSuffix = ".i18n.yaml"

func loadCatalogs(reg *card.Registry, dir string, log *zap.Logger) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+CatalogSuffix))
	if err != nil {
		return fmt.Errorf("list catalogs: %w", err)
	}
	sort.Strings(paths)
	for _, path := range paths {
		cat, err := i18n.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), CatalogSuffix)
		if err := reg.Extend(name, card.Extension{I18n: cat}); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}
		log.Debug("card catalog loaded", zap.String("card", name), zap.String("path", path))
	}
	return nil
}

func registerDisplayNames(reg *card.Registry) {
	reg.RegisterDisplayName("action")("program", map[string]string{
		"zh-CN": "可编程",
		"en":    "Programmable",
	})("web", map[string]string{
		"zh-CN": "网络相关",
		"en":    "Web Related",
	})("debug", map[string]string{
		"zh-CN": "调试使用",
	})
	reg.RegisterDisplayName("trigger")("time", map[string]string{
		"zh-CN": "时间相关",
		"en":    "Time Related",
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
