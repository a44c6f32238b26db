package render

import "testing"

func TestRenderObjectTemplate(t *testing.T) {
	r := New()
	attrs := map[string]any{"number": "abc123", "email": "buyer@example.com", "totalCents": int64(1500)}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "single brace", tmpl: "/thanks?order={number}", want: "/thanks?order=abc123"},
		{name: "double brace", tmpl: "/thanks/{{ number }}", want: "/thanks/abc123"},
		{name: "go template", tmpl: "/thanks/{{.number}}?total={{ .totalCents }}", want: "/thanks/abc123?total=1500"},
		{name: "stripe placeholder kept", tmpl: "/done?s={CHECKOUT_SESSION_ID}&n={number}", want: "/done?s={CHECKOUT_SESSION_ID}&n=abc123"},
		{name: "no placeholders", tmpl: " /static ", want: "/static"},
		{name: "empty", tmpl: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.RenderObjectTemplate(tt.tmpl, attrs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderObjectTemplateMissingAttribute(t *testing.T) {
	if _, err := New().RenderObjectTemplate("/thanks/{missing}", map[string]any{}); err == nil {
		t.Fatal("expected missing attribute to fail")
	}
}

func TestRenderObjectTemplateParseError(t *testing.T) {
	if _, err := New().RenderObjectTemplate("/thanks/{{ if }}", map[string]any{}); err == nil {
		t.Fatal("expected malformed template to fail")
	}
}
