package kaggle

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderTemplate loads a kernel script template and substitutes {{key}}
// placeholders with the given values. A placeholder left unresolved is an
// error; it is cheaper to fail here than to burn kernel quota on a script
// with a literal "{{video_ids_list}}" in it.
func RenderTemplate(path string, values map[string]string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	rendered := string(raw)
	for key, value := range values {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	if matches := placeholderPattern.FindAllStringSubmatch(rendered, -1); len(matches) > 0 {
		missing := make([]string, 0, len(matches))
		seen := map[string]struct{}{}
		for _, match := range matches {
			if _, dup := seen[match[1]]; dup {
				continue
			}
			seen[match[1]] = struct{}{}
			missing = append(missing, match[1])
		}
		sort.Strings(missing)
		return "", fmt.Errorf("template %s: unresolved placeholders: %s", path, strings.Join(missing, ", "))
	}
	return rendered, nil
}
