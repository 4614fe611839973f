package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
)

// placeholderPattern matches {{variable}} slots, tolerating inner whitespace.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render substitutes variables into the template body. Substitution is purely
// textual, no expression evaluation. Every required variable must be supplied;
// extra variables without a matching placeholder are silently ignored.
func Render(tpl *domain.Template, variables map[string]string) (string, error) {
	if tpl == nil {
		return "", fmt.Errorf("%w: template is required", domain.ErrValidation)
	}

	for _, required := range tpl.RequiredVariables() {
		if _, ok := variables[required]; !ok {
			return "", &domain.MissingVariableError{Name: required}
		}
	}

	body := placeholderPattern.ReplaceAllStringFunc(tpl.Body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})

	return body, nil
}

// Placeholders returns the distinct placeholder names found in a template body,
// in order of first appearance.
func Placeholders(body string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// HasUnresolvedPlaceholders reports whether a rendered body still contains
// {{placeholder}} slots.
func HasUnresolvedPlaceholders(body string) bool {
	return placeholderPattern.MatchString(body)
}

func normalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
