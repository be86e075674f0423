package templates

import "regexp"

// slotPattern matches {{slot_name}} placeholders in template bodies.
var slotPattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)

// RenderResult is a rendered template body plus the slots that had no
// value and were left intact.
type RenderResult struct {
	Body    string   `json:"body"`
	Missing []string `json:"missing,omitempty"`
}

// Slots returns the placeholder names in a template body, in order of
// first appearance.
func (c *Catalog) Slots(id string) ([]string, error) {
	tpl, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return extractSlots(tpl.Body), nil
}

// Render substitutes {{slot}} placeholders in the template body.
// Caller variables win over template defaults. Unknown slots are left
// intact and reported in the result rather than failing the render.
func (c *Catalog) Render(id string, vars map[string]string) (RenderResult, error) {
	tpl, err := c.Get(id)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderBody(tpl, vars), nil
}

// RenderBody substitutes placeholders in an already resolved template.
func RenderBody(tpl Template, vars map[string]string) RenderResult {
	merged := make(map[string]string, len(tpl.Defaults)+len(vars))
	for k, v := range tpl.Defaults {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	var missing []string
	seen := make(map[string]bool)

	body := slotPattern.ReplaceAllStringFunc(tpl.Body, func(match string) string {
		name := slotPattern.FindStringSubmatch(match)[1]
		if value, ok := merged[name]; ok {
			return value
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return match
	})

	return RenderResult{Body: body, Missing: missing}
}

func extractSlots(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, match := range slotPattern.FindAllStringSubmatch(body, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			out = append(out, match[1])
		}
	}
	return out
}
