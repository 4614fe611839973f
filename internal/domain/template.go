package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template is a named, language-scoped message skeleton with {{placeholder}} slots.
type Template struct {
	ID        string
	Name      string
	Language  string
	Body      string
	Variables []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: template is required", ErrValidation)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if strings.TrimSpace(t.Language) == "" {
		return fmt.Errorf("%w: template language is required", ErrValidation)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: template body is required", ErrValidation)
	}
	return nil
}

// RequiredVariables returns the placeholder names a render call must supply.
func (t *Template) RequiredVariables() []string {
	return t.Variables
}
