// Package compose renders the per-environment runtime description from
// the project template and drives `docker compose` against it.
package compose

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/zpdzap/coves/internal/coverr"
)

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// homePattern matches `~/` only where a value can start: beginning of a
// line, after a `key: `, or after a `- ` list marker. A `~/` in the
// middle of a value (say, inside a service command) stays literal.
var homePattern = regexp.MustCompile(`(?m)(^|: |- )~/`)

// Render substitutes the environment's variable set into the template.
// Only ${COVE_*} names belong to the engine: one that is referenced but
// absent from vars is a render failure. Any other ${...} is left as
// literal text for the runtime to interpret. A `~/` shorthand at the
// start of a value expands to the invoking user's home directory.
func Render(template string, vars map[string]string) (string, error) {
	var missing []string
	out := varPattern.ReplaceAllStringFunc(template, func(ref string) string {
		name := varPattern.FindStringSubmatch(ref)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		if strings.HasPrefix(name, "COVE_") {
			missing = append(missing, name)
		}
		return ref
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", coverr.Newf(coverr.ETemplateRender,
			"template references unbound variables: %s", strings.Join(missing, ", "))
	}

	if home, err := os.UserHomeDir(); err == nil {
		out = homePattern.ReplaceAllStringFunc(out, func(m string) string {
			return strings.TrimSuffix(m, "~/") + home + "/"
		})
	}
	return out, nil
}

// RenderFile renders a template file to destination path.
func RenderFile(templatePath, destPath string, vars map[string]string) error {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return coverr.Wrap(coverr.ETemplateRender,
			fmt.Sprintf("reading template %s", templatePath), err)
	}
	rendered, err := Render(string(raw), vars)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destPath, []byte(rendered), 0o644); err != nil {
		return coverr.Wrap(coverr.ETemplateRender,
			fmt.Sprintf("writing %s", destPath), err)
	}
	return nil
}
