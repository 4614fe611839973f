package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
)

func orderConfirmationTemplate() *domain.Template {
	return &domain.Template{
		ID:       "tpl-1",
		Name:     "order_confirmation",
		Language: "en",
		Body: "Hi {{customer_name}}! Your order #{{order_id}} is confirmed. " +
			"Total: {{total}}.",
		Variables: []string{"customer_name", "order_id", "total"},
		Active:    true,
	}
}

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	t.Parallel()

	body, err := Render(orderConfirmationTemplate(), map[string]string{
		"customer_name": "Ana",
		"order_id":      "ORD-001",
		"total":         "99.99",
	})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}

	if !strings.Contains(body, "ORD-001") || !strings.Contains(body, "99.99") {
		t.Fatalf("Render() body missing substituted values: %q", body)
	}
	if HasUnresolvedPlaceholders(body) {
		t.Fatalf("Render() left unresolved placeholders: %q", body)
	}
}

func TestRenderMissingRequiredVariable(t *testing.T) {
	t.Parallel()

	_, err := Render(orderConfirmationTemplate(), map[string]string{
		"customer_name": "Ana",
		"total":         "99.99",
	})

	var missing *domain.MissingVariableError
	if !errors.As(err, &missing) {
		t.Fatalf("Render() error = %v, want MissingVariableError", err)
	}
	if missing.Name != "order_id" {
		t.Fatalf("missing variable = %q, want order_id", missing.Name)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatal("MissingVariableError should wrap ErrValidation")
	}
}

func TestRenderIgnoresExtraVariables(t *testing.T) {
	t.Parallel()

	body, err := Render(orderConfirmationTemplate(), map[string]string{
		"customer_name": "Ana",
		"order_id":      "ORD-001",
		"total":         "99.99",
		"coupon_code":   "WELCOME10",
	})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if strings.Contains(body, "WELCOME10") {
		t.Fatalf("Render() should not inject unused variables: %q", body)
	}
}

func TestRenderToleratesPlaceholderWhitespace(t *testing.T) {
	t.Parallel()

	tpl := &domain.Template{
		Name:      "welcome_message",
		Language:  "en",
		Body:      "Welcome {{ customer_name }}!",
		Variables: []string{"customer_name"},
		Active:    true,
	}

	body, err := Render(tpl, map[string]string{"customer_name": "Ana"})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if body != "Welcome Ana!" {
		t.Fatalf("Render() = %q, want %q", body, "Welcome Ana!")
	}
}

func TestRenderIsTextualOnly(t *testing.T) {
	t.Parallel()

	tpl := &domain.Template{
		Name:      "custom",
		Language:  "en",
		Body:      "Hello {{name}}",
		Variables: []string{"name"},
		Active:    true,
	}

	// Values are inserted verbatim, never evaluated.
	body, err := Render(tpl, map[string]string{"name": "{{other}} $(rm -rf /)"})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if body != "Hello {{other}} $(rm -rf /)" {
		t.Fatalf("Render() = %q, values must be inserted verbatim", body)
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	got := Placeholders("{{a}} {{b}} {{ a }} plain {{c_1}}")
	want := []string{"a", "b", "c_1"}
	if len(got) != len(want) {
		t.Fatalf("Placeholders() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Placeholders()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
