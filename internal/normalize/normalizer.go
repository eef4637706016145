package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/bibcat/internal/llm"
	"github.com/matsen/bibcat/internal/logger"
)

// AuthorExpander resolves abbreviated given names, e.g. "D. Martuccelli" to
// "Danilo Martuccelli". Implementations return the input when unsure.
type AuthorExpander interface {
	Expand(ctx context.Context, author string) (string, error)
}

// Polisher rewrites an author/title pair into its canonical display form.
type Polisher interface {
	Polish(ctx context.Context, author, title string) (llm.Result[Pair], error)
}

// Pair is a normalized author/title.
type Pair struct {
	Author string `json:"normalized_author"`
	Title  string `json:"normalized_title"`
}

// Key returns the identity key of the pair.
func (p Pair) Key() string { return Key(p.Author, p.Title) }

// Normalizer produces display forms. The zero value applies local rules only.
type Normalizer struct {
	Expander AuthorExpander
	Polisher Polisher
	Log      *logger.Logger
}

// Local is a Normalizer without any model-backed capability.
var Local = &Normalizer{}

// Normalize never fails; capability errors fall back to the local rendering.
func (n *Normalizer) Normalize(ctx context.Context, author, title string) Pair {
	log := n.Log
	if log == nil {
		log = logger.Nop()
	}

	if n.Expander != nil && HasInitials(author) {
		expanded, err := n.Expander.Expand(ctx, author)
		switch {
		case err != nil:
			log.Warn("author expansion failed", "author", author, "error", err)
		case strings.TrimSpace(expanded) != "":
			author = expanded
		}
	}

	if n.Polisher != nil {
		res, err := n.Polisher.Polish(ctx, author, title)
		if err != nil {
			log.Warn("polish failed", "title", title, "error", err)
		} else {
			res.Match(func(p Pair) {
				if strings.TrimSpace(p.Author) != "" {
					author = p.Author
				}
				if strings.TrimSpace(p.Title) != "" {
					title = p.Title
				}
			}, func(raw string) {
				log.Warn("polish output unparseable", "title", title, "raw", raw)
			})
		}
	}

	return Pair{Author: FormatAuthors(author), Title: TitleCase(title)}
}

// LLMExpander is an AuthorExpander backed by a language model.
type LLMExpander struct {
	Model llm.Completer
}

const expandPrompt = `El autor "%s" aparece con el nombre abreviado.
Si se trata de un autor académico conocido (ciencias sociales, sociología,
trabajo social), indica su nombre completo. Ejemplos: "D. Martuccelli" es
"Danilo Martuccelli", "P. Bourdieu" es "Pierre Bourdieu".
Si no lo sabes con certeza, devuelve el nombre tal como está.
Responde solo con JSON: {"full_name": "Nombre Completo"}`

// Expand asks the model for the full name.
func (e *LLMExpander) Expand(ctx context.Context, author string) (string, error) {
	type answer struct {
		FullName string `json:"full_name"`
	}
	res, err := llm.AskJSON[answer](ctx, e.Model, fmt.Sprintf(expandPrompt, author), 200)
	if err != nil {
		return author, err
	}
	if a, ok := res.Get(); ok && strings.TrimSpace(a.FullName) != "" {
		return a.FullName, nil
	}
	return author, nil
}

// LLMPolisher is a Polisher backed by a language model.
type LLMPolisher struct {
	Model llm.Completer
}

const polishPrompt = `Normaliza esta entrada bibliográfica.
Autor: %s
Título: %s

Autor: formato "Nombre Apellido", nombres completos, varios autores separados
por comas, mayúscula inicial en cada nombre.
Título: mayúscula en la primera palabra y en las palabras importantes;
artículos, preposiciones y conjunciones en minúscula salvo al inicio; sin
espacios ni signos sobrantes.
Ejemplo: "TRANSFORMACIONES DE LA ACCIÓN PÚBLICA" pasa a "Transformaciones de la Acción Pública".

Responde solo con JSON: {"normalized_author": "...", "normalized_title": "..."}`

// Polish asks the model for the canonical pair.
func (p *LLMPolisher) Polish(ctx context.Context, author, title string) (llm.Result[Pair], error) {
	return llm.AskJSON[Pair](ctx, p.Model, fmt.Sprintf(polishPrompt, author, title), 500)
}
