// Package server is the web form: upload syllabi, import a report,
// download the consolidated report and poll the running job.
package server

import (
	"context"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/matsen/bibcat/internal/importer"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/pipeline"
	"github.com/matsen/bibcat/internal/storage"
)

// ReportFunc writes the report and returns the file written.
type ReportFunc func(ctx context.Context) (*pipeline.ReportResult, error)

// Handler serves the form endpoints.
type Handler struct {
	DB       *storage.DB
	Runner   *pipeline.Runner
	Importer *importer.Importer
	Report   ReportFunc

	// UploadDir receives uploaded PDFs, one subdirectory per run.
	UploadDir string

	// AfterRun is called in the background worker once a run ends
	// without error.
	AfterRun func(ctx context.Context, stats *pipeline.Stats)

	Log *logger.Logger
}

func (h *Handler) log() *logger.Logger {
	if h.Log == nil {
		return logger.Nop()
	}
	return h.Log
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(formTemplate)
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		h.log().Warn("setting trusted proxies failed", "error", err)
	}
	h.RegisterRoutes(&router.RouterGroup)
	return router
}

// RegisterRoutes mounts the handlers on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.form)
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	rg.GET("/careers", h.careers)
	rg.POST("/process", h.process)
	rg.GET("/runs/current", h.status)
	rg.POST("/import", h.importCSV)
	rg.GET("/report", h.report)
}

func (h *Handler) form(c *gin.Context) {
	careers, err := h.DB.ListCareers(c.Request.Context())
	if err != nil {
		h.log().Error("listing careers failed", "error", err)
	}
	c.HTML(http.StatusOK, "form", gin.H{"Careers": careers, "Status": h.Runner.Status()})
}

func (h *Handler) careers(c *gin.Context) {
	careers, err := h.DB.ListCareers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing careers failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"careers": careers})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Runner.Status())
}

func (h *Handler) process(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one PDF is required in field \"files\""})
		return
	}
	opts := pipeline.Options{
		Career:  strings.TrimSpace(c.PostForm("career")),
		Faculty: strings.TrimSpace(c.PostForm("faculty")),
	}

	runID, err := h.Runner.Start()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	dir := filepath.Join(h.UploadDir, runID)
	paths, err := h.save(c, dir, files)
	if err != nil {
		// Execute releases the reservation; an empty run ends immediately.
		h.Runner.Execute(context.Background(), runID, nil, opts)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go h.work(runID, paths, opts)
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "documents": len(paths)})
}

func (h *Handler) save(c *gin.Context, dir string, files []*multipart.FileHeader) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	var paths []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			return nil, fmt.Errorf("%s is not a PDF", name)
		}
		dst := filepath.Join(dir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return nil, fmt.Errorf("saving %s: %w", name, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// work runs in the background so the request returns immediately.
func (h *Handler) work(runID string, paths []string, opts pipeline.Options) {
	ctx := context.Background()
	log := h.log().With("run_id", runID)
	stats, err := h.Runner.Execute(ctx, runID, paths, opts)
	if err != nil {
		log.Error("run failed", "error", err)
		return
	}
	if h.AfterRun != nil {
		h.AfterRun(ctx, stats)
	}
}

func (h *Handler) importCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file required in field \"file\""})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()

	release, err := h.Runner.Reserve()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	defer release()

	res, err := h.Importer.Import(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) report(c *gin.Context) {
	if h.Report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report generation disabled"})
		return
	}
	res, err := h.Report(c.Request.Context())
	if err != nil {
		h.log().Error("report failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report could not be written"})
		return
	}
	c.FileAttachment(res.Path, filepath.Base(res.Path))
}

var formTemplate = template.Must(template.New("form").Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Bibliografía</title></head>
<body>
<h1>Procesar programas de asignatura</h1>
{{if .Status.Running}}<p>Procesando {{.Status.Current}} de {{.Status.Total}}: {{.Status.Document}}</p>{{end}}
<form action="/process" method="post" enctype="multipart/form-data">
  <label>Facultad <input name="faculty"></label>
  <label>Carrera
    <input name="career" list="careers">
    <datalist id="careers">{{range .Careers}}<option value="{{.Name}}">{{end}}</datalist>
  </label>
  <input type="file" name="files" accept="application/pdf" multiple>
  <button type="submit">Procesar</button>
</form>
<h2>Importar reporte</h2>
<form action="/import" method="post" enctype="multipart/form-data">
  <input type="file" name="file" accept=".csv">
  <button type="submit">Importar</button>
</form>
<p><a href="/report">Descargar reporte</a></p>
</body>
</html>`))
