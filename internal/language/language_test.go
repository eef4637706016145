package language

import (
	"context"
	"errors"
	"testing"

	"github.com/matsen/bibcat/internal/llm"
)

func TestHeuristic(t *testing.T) {
	tests := []struct{ title, want string }{
		{"The Interpretation of Cultures", English},
		{"La Interpretación de las Culturas", Spanish},
		{"La Sociologie Française Contemporaine", French},
		{"Die Gesellschaft der Gesellschaft", German},
		{"Il Capitale Sociale", Italian},
		{"A Sociedade Portuguesa", Portuguese},
		{"ONU", None},
		{"Xyzzy Plugh", Other},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := (Heuristic{}).Detect(context.Background(), tt.title); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestLLM(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		model *llm.Scripted
		want  string
	}{
		{"code", (&llm.Scripted{}).On("idioma", "spa"), Spanish},
		{"punctuated", (&llm.Scripted{}).On("idioma", "`ENG`."), English},
		{"unknown answer", (&llm.Scripted{}).On("idioma", "Klingon"), Other},
		{"error uses fallback", &llm.Scripted{Err: errors.New("down")}, Spanish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &LLM{Model: tt.model, Fallback: Heuristic{}}
			if got := d.Detect(ctx, "El Oficio de Sociólogo"); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLLMEmptyTitle(t *testing.T) {
	model := &llm.Scripted{}
	if got := (&LLM{Model: model}).Detect(context.Background(), "  "); got != "" {
		t.Errorf("Detect() = %q, want empty", got)
	}
	if len(model.Calls()) != 0 {
		t.Error("model called for empty title")
	}
}

func TestCached(t *testing.T) {
	model := (&llm.Scripted{}).On("idioma", "SPA")
	c := NewCached(&LLM{Model: model})
	ctx := context.Background()

	c.Detect(ctx, "La Distinción")
	c.Detect(ctx, "la distincion")
	if got := c.Detect(ctx, "LA DISTINCIÓN"); got != Spanish {
		t.Errorf("Detect() = %q", got)
	}
	if n := len(model.Calls()); n != 1 {
		t.Errorf("model called %d times, want 1", n)
	}
}
