package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/form"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value for validation

	// Card errors (E101-E110)
	ErrInvalidParent       = "E101" // parent must be action.* or trigger.*
	ErrInvalidName         = "E102" // card name must be a snake_case identifier
	ErrInvalidArgKind      = "E103" // unknown arg kind
	ErrDuplicateArg        = "E104" // duplicate arg name
	ErrInvalidBranch       = "E105" // duplicate branch or unknown branch reference
	ErrInvalidPosition     = "E106" // branch position is not left/right/top/bottom
	ErrInvalidFieldType    = "E107" // unknown form field type
	ErrDuplicateField      = "E108" // duplicate form field name
	ErrOptionWithoutChoice = "E109" // Option field declares no options
	ErrMissingTitle        = "E110" // i18n locale without a title, or no en locale
)

// ValidationError represents a card validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled card.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch m := v.(type) {
	case *card.Meta:
		return validateCard(m)
	case card.Meta:
		return validateCard(&m)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// ValidateAll validates cards and reports duplicate names across them.
func ValidateAll(cards []*card.Meta) map[string][]ValidationError {
	out := make(map[string][]ValidationError)
	seen := make(map[string]bool)
	for _, c := range cards {
		errs := validateCard(c)
		if seen[c.Name] {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: fmt.Sprintf("duplicate card name %q", c.Name),
				Code:    ErrInvalidName,
			})
		}
		seen[c.Name] = true
		if len(errs) > 0 {
			out[c.Name] = append(out[c.Name], errs...)
		}
	}
	return out
}

// parentPattern matches "action.web", "trigger.time.cron" and so on.
var parentPattern = regexp.MustCompile(`^(action|trigger)(\.[a-z][a-z0-9_]*)+$`)

// namePattern matches snake_case card names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validateCard(m *card.Meta) []ValidationError {
	var errs []ValidationError

	// E101: parent namespace
	if !parentPattern.MatchString(m.Parent) {
		errs = append(errs, ValidationError{
			Field:   "parent",
			Message: fmt.Sprintf("invalid parent %q, expected \"action.<group>\" or \"trigger.<group>\"", m.Parent),
			Code:    ErrInvalidParent,
		})
	}

	// E102: name
	if !namePattern.MatchString(m.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid card name %q", m.Name),
			Code:    ErrInvalidName,
		})
	}

	errs = append(errs, validateArgs(m.Args, "args")...)

	branches := make(map[string]bool)
	for i, b := range m.Branches {
		// E105: duplicate branch
		if branches[b.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("branches[%d].branch", i),
				Message: fmt.Sprintf("duplicate branch name: %q", b.Name),
				Code:    ErrInvalidBranch,
			})
		}
		branches[b.Name] = true

		// E106: position
		switch b.Position {
		case card.Left, card.Right, card.Top, card.Bottom:
		default:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("branches[%d].position", i),
				Message: fmt.Sprintf("invalid position %q", b.Position),
				Code:    ErrInvalidPosition,
			})
		}
	}

	fields := make(map[string]bool)
	for i, f := range m.View.Form {
		path := fmt.Sprintf("view.form[%d]", i)

		// E108: duplicate field
		if fields[f.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate form field name: %q", f.Name),
				Code:    ErrDuplicateField,
			})
		}
		fields[f.Name] = true

		// E107: field type
		if !f.Type.Valid() {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("invalid field type %q for field %q", f.Type, f.Name),
				Code:    ErrInvalidFieldType,
			})
		}

		// E109: options
		if f.Type == form.Option && len(f.Data.Options) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".data",
				Message: fmt.Sprintf("option field %q declares no options", f.Name),
				Code:    ErrOptionWithoutChoice,
			})
		}

		// E105: plug allow-list must name branches
		for _, b := range f.Plug {
			if !branches[b] {
				errs = append(errs, ValidationError{
					Field:   path + ".plug",
					Message: fmt.Sprintf("field %q accepts plugs from unknown branch %q", f.Name, b),
					Code:    ErrInvalidBranch,
				})
			}
		}
	}

	// E110: titles
	if len(m.I18n) > 0 {
		if _, ok := m.I18n["en"]; !ok {
			errs = append(errs, ValidationError{
				Field:   "i18n",
				Message: "catalog has no \"en\" locale",
				Code:    ErrMissingTitle,
			})
		}
		for _, locale := range m.I18n.Locales() {
			if t, ok := m.I18n[locale]["title"].(string); !ok || strings.TrimSpace(t) == "" {
				errs = append(errs, ValidationError{
					Field:   "i18n." + locale + ".title",
					Message: fmt.Sprintf("locale %q has no title", locale),
					Code:    ErrMissingTitle,
				})
			}
		}
	}

	return errs
}

func validateArgs(args []card.Arg, prefix string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, a := range args {
		path := prefix + "." + a.Name

		// E104: duplicate arg
		if seen[a.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate arg name: %q", a.Name),
				Code:    ErrDuplicateArg,
			})
		}
		seen[a.Name] = true

		if len(a.Fields) > 0 {
			errs = append(errs, validateArgs(a.Fields, path)...)
			continue
		}

		// E103: arg kind
		if !isArgKind(a.Kind) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid kind %q for arg %q", a.Kind, a.Name),
				Code:    ErrInvalidArgKind,
			})
		}
	}
	return errs
}

func isArgKind(k string) bool {
	for _, known := range card.ArgKinds {
		if k == known {
			return true
		}
	}
	return false
}
