package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/cards"
	"github.com/roach88/daisy/internal/compiler"
	"github.com/roach88/daisy/internal/store"
)

// Error codes for CLI output. Card validation codes (E1xx) come from the
// compiler package.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeCompileFailed = "E004" // Card file does not compile
	ErrCodeNotFound      = "E005" // Path, card or script not found
	ErrCodeStoreFailed   = "E006" // Script store error
	ErrCodeBadInput      = "E007" // Unparseable flag or argument
	ErrCodeRunFailed     = "E008" // Script run failed
)

// LoadError represents an error that occurred while loading card files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// checkCardDir verifies dir exists and holds at least one .cue file.
func checkCardDir(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("card directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing card directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	files, err := cards.CardFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}
	return files, nil
}

// loadRegistry loads the built-in cards plus every configured directory.
func loadRegistry(opts *RootOptions) (*card.Registry, error) {
	dirs := opts.cardDirs()
	for _, dir := range dirs {
		if _, err := checkCardDir(dir); err != nil {
			return nil, err
		}
	}
	reg, err := cards.Load(cards.Options{
		Logger: opts.log(),
		Dirs:   dirs,
		Strict: opts.Config.Cards.Strict,
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCompileFailed, Message: err.Error()}
	}
	return reg, nil
}

// compileFile compiles one card file, converting a compile failure into a
// positioned validation error.
func compileFile(path string) ([]*card.Meta, *compiler.ValidationError) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &compiler.ValidationError{Field: filepath.Base(path), Message: err.Error(), Code: ErrCodeScanError}
	}
	metas, err := compiler.CompileSource(path, src)
	if err == nil {
		return metas, nil
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return nil, &compiler.ValidationError{
			Field:   ce.Field,
			Message: ce.Message,
			Code:    ErrCodeCompileFailed,
			Line:    lineOf(ce.Pos),
		}
	}
	return nil, &compiler.ValidationError{Field: filepath.Base(path), Message: err.Error(), Code: ErrCodeCompileFailed}
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// openStore opens the script database, creating its directory.
func openStore(opts *RootOptions) (*store.Store, error) {
	path := opts.dbPath()
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no script database configured (use --db)")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open script database", err)
	}
	opts.log().Debug("script database opened")
	return st, nil
}
