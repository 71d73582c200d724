package sandbox

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// The engine runs scripts, not modules, so module text is transformed to
// CommonJS and wrapped in a function of (require, module, exports).
// require is bound to the realm importer, which keeps lookups closed over
// the module map.

// transformModule turns module text into a function expression.
func transformModule(specifier, src string) (string, error) {
	res := api.Transform(src, api.TransformOptions{
		Loader:     api.LoaderJS,
		Format:     api.FormatCommonJS,
		Target:     api.ES2017,
		Sourcefile: specifier,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		msgs := make([]string, 0, len(res.Errors))
		for _, m := range res.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
				continue
			}
			msgs = append(msgs, m.Text)
		}
		return "", fmt.Errorf("%w: %s", ErrModuleSyntax, strings.Join(msgs, "; "))
	}

	var b strings.Builder
	b.WriteString("(function (require, module, exports) {\n")
	b.Write(res.Code)
	b.WriteString("\n})")
	return b.String(), nil
}
