package main

import (
	"github.com/matsen/bibcat/internal/catalog"
	"github.com/matsen/bibcat/internal/config"
	"github.com/matsen/bibcat/internal/extract"
	"github.com/matsen/bibcat/internal/importer"
	"github.com/matsen/bibcat/internal/language"
	"github.com/matsen/bibcat/internal/llm"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/merge"
	"github.com/matsen/bibcat/internal/normalize"
	"github.com/matsen/bibcat/internal/pipeline"
	"github.com/matsen/bibcat/internal/report"
	"github.com/matsen/bibcat/internal/storage"
)

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if dbOverride != "" {
		cfg.DBPath = config.ExpandPath(dbOverride)
	}
	return cfg
}

// mustLogger builds the logger selected by the config, exits on error.
func mustLogger(cfg *config.Config) *logger.Logger {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		exitWithError(ExitConfigError, "building logger: %v", err)
	}
	onExit(log.Sync)
	return log
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config) *storage.DB {
	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	onExit(func() { db.Close() })
	return db
}

// completer returns the configured model, or nil when no key is set.
func completer(cfg *config.Config, log *logger.Logger) llm.Completer {
	if !cfg.HasLLM() {
		return nil
	}
	c, err := llm.NewOpenAI(cfg.LLM.APIKey,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(cfg.LLM.Timeout))
	if err != nil {
		log.Warn("language model unavailable", "error", err)
		return nil
	}
	return c
}

// mustCompleter is completer for commands that cannot run without a model.
func mustCompleter(cfg *config.Config, log *logger.Logger) llm.Completer {
	c := completer(cfg, log)
	if c == nil {
		exitWithError(ExitConfigError, "%v\n\nSet it in the environment or a .env file.", llm.ErrNoAPIKey)
	}
	return c
}

func newNormalizer(model llm.Completer, log *logger.Logger) *normalize.Normalizer {
	if model == nil {
		return normalize.Local
	}
	return &normalize.Normalizer{
		Expander: &normalize.LLMExpander{Model: model},
		Polisher: &normalize.LLMPolisher{Model: model},
		Log:      log,
	}
}

func newCatalog(cfg *config.Config, log *logger.Logger) catalog.Finder {
	if cfg.Catalog.Disabled {
		return catalog.Offline{}
	}
	primo := catalog.NewPrimo(
		catalog.WithAPIKey(cfg.Catalog.APIKey),
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithView(cfg.Catalog.VID, cfg.Catalog.Tab, cfg.Catalog.Scope),
	)
	return catalog.NewGuard(primo,
		catalog.WithDelay(cfg.Catalog.Delay),
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithLogger(log))
}

// newEngine wires the merge engine. A nil model keeps normalization local.
func newEngine(cfg *config.Config, db *storage.DB, model llm.Completer, log *logger.Logger, withCatalog bool) *merge.Engine {
	e := merge.New(db)
	e.Normalizer = newNormalizer(model, log)
	e.CatalogImpliesDigital = cfg.Merge.CatalogImpliesDigital
	e.Log = log
	if withCatalog {
		e.Catalog = newCatalog(cfg, log)
	}
	return e
}

func newDetector(model llm.Completer, log *logger.Logger) language.Detector {
	if model == nil {
		return language.Heuristic{}
	}
	return &language.LLM{Model: model, Fallback: language.Heuristic{}, Log: log}
}

func newReportWriter(cfg *config.Config, path string, log *logger.Logger) *report.Writer {
	if path == "" {
		path = cfg.ReportPath
	}
	w := report.NewWriter(path)
	w.Attempts = cfg.Report.Attempts
	w.Backoff = cfg.Report.Backoff
	w.Log = log
	return w
}

func newImporter(cfg *config.Config, db *storage.DB, model llm.Completer, log *logger.Logger) *importer.Importer {
	return &importer.Importer{
		Engine:         newEngine(cfg, db, model, log, false),
		DefaultFaculty: cfg.Faculty,
		Log:            log,
	}
}

func newRunner(cfg *config.Config, db *storage.DB, model llm.Completer, log *logger.Logger) *pipeline.Runner {
	r := pipeline.NewRunner(db, newEngine(cfg, db, model, log, true), extract.New(model))
	r.Defaults = pipeline.Options{Career: cfg.Career, Faculty: cfg.Faculty}
	r.Log = log
	return r
}
