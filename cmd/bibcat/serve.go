package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/matsen/bibcat/internal/pipeline"
	"github.com/matsen/bibcat/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload form",
	Long: `Serve the upload form.

The form uploads syllabus PDFs for a career, imports a report CSV and
downloads the latest report. Uploaded PDFs are processed in the
background; only one run is accepted at a time.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	defer log.Sync()
	model := mustCompleter(cfg, log)
	db := mustOpenDatabase(cfg)
	defer db.Close()

	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	uploadDir := cfg.Server.UploadDir
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "bibcat-uploads")
	}

	detector := newDetector(model, log)
	writeReport := func(ctx context.Context) (*pipeline.ReportResult, error) {
		return pipeline.WriteReport(ctx, db, detector, newReportWriter(cfg, "", log), log)
	}
	h := &server.Handler{
		DB:        db,
		Runner:    newRunner(cfg, db, model, log),
		Importer:  newImporter(cfg, db, model, log),
		Report:    writeReport,
		UploadDir: uploadDir,
		AfterRun: func(ctx context.Context, _ *pipeline.Stats) {
			if _, err := writeReport(ctx); err != nil {
				log.Error("report after run failed", "error", err)
			}
			if _, err := pipeline.Notify(ctx, db, log); err != nil {
				log.Warn("notify failed", "error", err)
			}
		},
		Log: log,
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := &http.Server{Addr: addr, Handler: h.Router()}

	errCh := make(chan error, 1)
	go func() {
		log.Info("form listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		exitWithError(ExitError, "server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	return nil
}
