package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/matsen/bibcat/internal/llm"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name           string
		a1, t1, a2, t2 string
		same           bool
	}{
		{"case", "d. Martuccelli", "EL NUEVO GOBIERNO", "D. MARTUCCELLI", "el nuevo gobierno", true},
		{"whitespace", "  Pierre   Bourdieu ", "La  distinción", "Pierre Bourdieu", "La distinción", true},
		{"accents", "Pierre Bourdieu", "La Distinción", "Pierre Bourdieu", "la distincion", true},
		{"different title", "Pierre Bourdieu", "La Distinción", "Pierre Bourdieu", "El oficio de sociólogo", false},
		{"author title boundary", "a b", "c", "a", "b c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.a1, tt.t1) == Key(tt.a2, tt.t2); got != tt.same {
				t.Errorf("Key(%q,%q) vs Key(%q,%q): same=%v, want %v", tt.a1, tt.t1, tt.a2, tt.t2, got, tt.same)
			}
		})
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  Acción   PÚBLICA\tñandú "); got != "accion publica nandu" {
		t.Errorf("Fold() = %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"el nuevo gobierno de los individuos", "El Nuevo Gobierno de los Individuos"},
		{"TRANSFORMACIONES DE LA ACCIÓN PÚBLICA", "Transformaciones de la Acción Pública"},
		{`  "La   reproducción".`, "La Reproducción"},
		{"la miseria del mundo: una introducción", "La Miseria del Mundo: Una Introducción"},
		{"historia de la ONU", "Historia de la ONU"},
		{"- «Sociología» *", "Sociología"},
		{"the logic of practice", "The Logic of Practice"},
		{"oneself as another", "Oneself as Another"},
		{"as veias abertas da américa latina", "As Veias Abertas da América Latina"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := TitleCase(tt.in)
			if got != tt.want {
				t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := TitleCase(got); again != got {
				t.Errorf("TitleCase not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Martuccelli, D.", "D. Martuccelli"},
		{"BOURDIEU, PIERRE", "Pierre Bourdieu"},
		{"Pierre Bourdieu; Jean-Claude Passeron", "Pierre Bourdieu, Jean-Claude Passeron"},
		{"josé ortega y gasset", "José Ortega y Gasset"},
		{"J.K. Rowling", "J. K. Rowling"},
		{"d. martuccelli", "D. Martuccelli"},
		{"Alain Touraine.", "Alain Touraine"},
		{"Bourdieu; Passeron", "Bourdieu; Passeron"},
		{"Platón & Aristóteles", "Platón; Aristóteles"},
		{"Weber; Marx; Durkheim", "Weber, Marx, Durkheim"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FormatAuthors(tt.in)
			if got != tt.want {
				t.Errorf("FormatAuthors(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := FormatAuthors(got); again != got {
				t.Errorf("FormatAuthors not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestHasInitials(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"D. Martuccelli", true},
		{"d. martuccelli", true},
		{"Martuccelli, D.", true},
		{"J.K. Rowling", true},
		{"Danilo Martuccelli", false},
		{"Pierre Bourdieu.", false},
	}
	for _, tt := range tests {
		if got := HasInitials(tt.in); got != tt.want {
			t.Errorf("HasInitials(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLocal(t *testing.T) {
	ctx := context.Background()
	p1 := Local.Normalize(ctx, "d. Martuccelli", "EL NUEVO GOBIERNO")
	p2 := Local.Normalize(ctx, "D. MARTUCCELLI", "el nuevo gobierno")
	if p1 != p2 {
		t.Errorf("Normalize differs: %+v vs %+v", p1, p2)
	}
	if again := Local.Normalize(ctx, p1.Author, p1.Title); again != p1 {
		t.Errorf("Normalize not idempotent: %+v -> %+v", p1, again)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tests := []struct {
		author, title string
	}{
		{"Bourdieu; Passeron", "Los herederos"},
		{"Platón; Aristóteles", "Diálogos"},
		{"Bourdieu, Pierre", "La distinción"},
		{"Martuccelli, D.", "EL NUEVO GOBIERNO"},
		{"Pierre Bourdieu; Jean-Claude Passeron", "La reproducción"},
		{"Weber; Marx; Durkheim; Simmel", "Sociología clásica"},
		{"J.K. Rowling & Neil Gaiman", "«Cuentos»"},
	}
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.author, func(t *testing.T) {
			once := Local.Normalize(ctx, tt.author, tt.title)
			twice := Local.Normalize(ctx, once.Author, once.Title)
			if twice != once {
				t.Errorf("Normalize(Normalize(x)) = %+v, want %+v", twice, once)
			}
			if twice.Key() != once.Key() {
				t.Errorf("identity key changed on re-normalization: %q -> %q", once.Key(), twice.Key())
			}
		})
	}
}

func TestNormalizeExpander(t *testing.T) {
	ctx := context.Background()
	model := (&llm.Scripted{}).On("abreviado", `{"full_name": "Danilo Martuccelli"}`)
	n := &Normalizer{Expander: &LLMExpander{Model: model}}

	got := n.Normalize(ctx, "D. Martuccelli", "el nuevo gobierno de los individuos")
	want := Pair{Author: "Danilo Martuccelli", Title: "El Nuevo Gobierno de los Individuos"}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}

	n.Normalize(ctx, "Pierre Bourdieu", "La distinción")
	if calls := len(model.Calls()); calls != 1 {
		t.Errorf("expander called %d times, want 1 (full names are not expanded)", calls)
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		model *llm.Scripted
		want  Pair
	}{
		{
			name:  "model error",
			model: &llm.Scripted{Err: errors.New("unavailable")},
			want:  Pair{Author: "D. Martuccelli", Title: "La Sociedad"},
		},
		{
			name:  "unparseable polish",
			model: (&llm.Scripted{}).On("Normaliza", "no puedo ayudar con eso"),
			want:  Pair{Author: "D. Martuccelli", Title: "La Sociedad"},
		},
		{
			name: "parsed polish",
			model: (&llm.Scripted{}).
				On("abreviado", `{"full_name": "D. Martuccelli"}`).
				On("Normaliza", "```json\n{\"normalized_author\": \"Danilo Martuccelli\", \"normalized_title\": \"la sociedad\"}\n```"),
			want: Pair{Author: "Danilo Martuccelli", Title: "La Sociedad"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Normalizer{
				Expander: &LLMExpander{Model: tt.model},
				Polisher: &LLMPolisher{Model: tt.model},
			}
			if got := n.Normalize(ctx, "D. Martuccelli", "la sociedad"); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
