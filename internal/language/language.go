// Package language classifies the language of a title.
package language

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/matsen/bibcat/internal/llm"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/normalize"
)

// Report language codes.
const (
	English    = "ENG"
	Spanish    = "SPA"
	French     = "FRA"
	German     = "GER"
	Italian    = "ITA"
	Portuguese = "POR"
	Catalan    = "CAT"
	Galician   = "GLG"
	Basque     = "EUS"
	Other      = "OTR"
	None       = "N/A"
)

var validCodes = map[string]bool{
	English: true, Spanish: true, French: true, German: true, Italian: true,
	Portuguese: true, Catalan: true, Galician: true, Basque: true, Other: true, None: true,
}

// Valid reports whether code is one of the report codes.
func Valid(code string) bool {
	return validCodes[code]
}

// Detector returns the language code of a title. An empty title yields "".
type Detector interface {
	Detect(ctx context.Context, title string) string
}

// LLM detects with a language model and falls back to Heuristic when the
// model fails.
type LLM struct {
	Model    llm.Completer
	Fallback Detector
	Log      *logger.Logger
}

const detectPrompt = `¿En qué idioma está este título?

Título: "%s"

Responde solo con uno de estos códigos: ENG (inglés), SPA (español),
FRA (francés), GER (alemán), ITA (italiano), POR (portugués), CAT (catalán),
GLG (gallego), EUS (euskera), OTR (otro o multilingüe), N/A (acrónimo o
código sin idioma claro).`

// Detect implements Detector. Answers outside the code list map to OTR.
func (d *LLM) Detect(ctx context.Context, title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	answer, err := d.Model.Complete(ctx, fmt.Sprintf(detectPrompt, title), 10)
	if err != nil {
		if d.Log != nil {
			d.Log.Warn("language detection failed", "title", title, "error", err)
		}
		if d.Fallback != nil {
			return d.Fallback.Detect(ctx, title)
		}
		return Other
	}
	code := strings.ToUpper(strings.Trim(strings.TrimSpace(answer), ".`\"'"))
	if !Valid(code) {
		return Other
	}
	return code
}

// Cached memoizes another Detector by folded title.
type Cached struct {
	Detector Detector

	mu    sync.Mutex
	cache map[string]string
}

// NewCached wraps d.
func NewCached(d Detector) *Cached {
	return &Cached{Detector: d, cache: make(map[string]string)}
}

// Detect implements Detector.
func (c *Cached) Detect(ctx context.Context, title string) string {
	key := normalize.Fold(title)
	c.mu.Lock()
	code, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return code
	}

	code = c.Detector.Detect(ctx, title)
	c.mu.Lock()
	c.cache[key] = code
	c.mu.Unlock()
	return code
}
