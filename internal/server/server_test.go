package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matsen/bibcat/internal/extract"
	"github.com/matsen/bibcat/internal/importer"
	"github.com/matsen/bibcat/internal/language"
	"github.com/matsen/bibcat/internal/llm"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/merge"
	"github.com/matsen/bibcat/internal/pipeline"
	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/report"
	"github.com/matsen/bibcat/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// gatedExtractor returns one fixed subject and bibliography, waiting on
// gate (when set) before answering.
type gatedExtractor struct {
	gate chan struct{}
}

func (g *gatedExtractor) Subject(context.Context, string) (llm.Result[extract.SubjectInfo], error) {
	if g.gate != nil {
		<-g.gate
	}
	return llm.Parsed(extract.SubjectInfo{Subject: "Sociología I"}, ""), nil
}

func (g *gatedExtractor) References(context.Context, string) (llm.Result[reference.Bibliography], error) {
	return llm.Parsed(reference.Bibliography{
		Basic: []reference.RawReference{{Author: "Ana Pérez", Title: "Redes", URL: "https://r.cl/1"}},
	}, ""), nil
}

func newHandler(t *testing.T, ex extract.Extractor) (*Handler, *storage.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenDB(filepath.Join(dir, "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := merge.New(db)
	runner := pipeline.NewRunner(db, engine, ex)
	runner.Defaults = pipeline.Options{Career: "Trabajo Social", Faculty: "Ciencias Sociales"}
	runner.Text = func(path string) (string, error) {
		data, err := os.ReadFile(path)
		return string(data), err
	}

	reportPath := filepath.Join(dir, "reporte.csv")
	h := &Handler{
		DB:        db,
		Runner:    runner,
		Importer:  &importer.Importer{Engine: engine},
		UploadDir: filepath.Join(dir, "uploads"),
		Report: func(ctx context.Context) (*pipeline.ReportResult, error) {
			return pipeline.WriteReport(ctx, db, language.Heuristic{}, report.NewWriter(reportPath), nil)
		},
	}
	return h, db
}

func upload(t *testing.T, url, field string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func waitIdle(t *testing.T, r *pipeline.Runner) pipeline.RunStatus {
	t.Helper()
	require.Eventually(t, func() bool { return !r.Status().Running }, 5*time.Second, 10*time.Millisecond)
	return r.Status()
}

func TestProcessRunsInBackground(t *testing.T) {
	h, db := newHandler(t, &gatedExtractor{})
	done := make(chan *pipeline.Stats, 1)
	h.AfterRun = func(_ context.Context, s *pipeline.Stats) { done <- s }
	router := h.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/process", "files",
		map[string]string{"a.pdf": "texto"}, map[string]string{"career": "Sociología"}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)

	select {
	case stats := <-done:
		assert.Equal(t, resp.RunID, stats.RunID)
		assert.Equal(t, 1, stats.Created)
	case <-time.After(5 * time.Second):
		t.Fatal("background run did not finish")
	}
	status := waitIdle(t, h.Runner)
	assert.Equal(t, resp.RunID, status.RunID)

	careers, err := db.ListCareers(context.Background())
	require.NoError(t, err)
	require.Len(t, careers, 1)
	assert.Equal(t, "Sociología", careers[0].Name)
}

func TestProcessConflictWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	h, _ := newHandler(t, &gatedExtractor{gate: gate})
	router := h.Router()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, upload(t, "/process", "files", map[string]string{"a.pdf": "x"}, nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, upload(t, "/process", "files", map[string]string{"b.pdf": "y"}, nil))
	assert.Equal(t, http.StatusConflict, second.Code)

	status := httptest.NewRecorder()
	router.ServeHTTP(status, httptest.NewRequest(http.MethodGet, "/runs/current", nil))
	assert.Contains(t, status.Body.String(), `"running":true`)

	close(gate)
	waitIdle(t, h.Runner)
}

func TestProcessRejectsBadUploads(t *testing.T) {
	h, _ := newHandler(t, &gatedExtractor{})
	router := h.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/process", "files", nil, map[string]string{"career": "X"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/process", "files", map[string]string{"notes.txt": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	waitIdle(t, h.Runner)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/process", "files", map[string]string{"a.pdf": "x"}, nil))
	assert.Equal(t, http.StatusAccepted, w.Code, "a rejected upload must release the runner")
	waitIdle(t, h.Runner)
}

func TestImportAndReport(t *testing.T) {
	h, _ := newHandler(t, &gatedExtractor{})
	router := h.Router()

	csv := "Carrera;Asignatura;Autor (Apellido, Nombre);Título del libro/revistas (Información completa del título);Total de ejemplares en catalogo impresos\n" +
		"Trabajo Social;Sociología I;Max Weber;Economía y sociedad;3\n" +
		"Trabajo Social;Sociología I;;Sin autor;0\n"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/import", "file", map[string]string{"r.csv": csv}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res importer.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Invalid)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reporte.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "\ufeff"))
	assert.Contains(t, w.Body.String(), "Economía y Sociedad")
}

func TestFormAndCareers(t *testing.T) {
	h, db := newHandler(t, &gatedExtractor{})
	_, err := db.GetOrCreateCareer(context.Background(), "Trabajo Social", "Ciencias Sociales")
	require.NoError(t, err)
	router := h.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<option value="Trabajo Social">`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/careers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Trabajo Social")
}

func TestImportConflictWhileProcessing(t *testing.T) {
	gate := make(chan struct{})
	h, db := newHandler(t, &gatedExtractor{gate: gate})
	router := h.Router()

	run := httptest.NewRecorder()
	router.ServeHTTP(run, upload(t, "/process", "files", map[string]string{"a.pdf": "x"}, nil))
	require.Equal(t, http.StatusAccepted, run.Code)

	csv := "Carrera;Asignatura;Autor;Título\nTrabajo Social;Sociología I;Max Weber;Economía y sociedad\n"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/import", "file", map[string]string{"r.csv": csv}, nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(gate)
	waitIdle(t, h.Runner)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, upload(t, "/import", "file", map[string]string{"r.csv": csv}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Titles, "one title from the run, one from the import")
}

func TestRouterSetupLogsNoWarnings(t *testing.T) {
	h, _ := newHandler(t, &gatedExtractor{})
	core, logs := observer.New(zap.WarnLevel)
	h.Log = logger.FromZap(zap.New(core))

	router := h.Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, logs.FilterMessage("setting trusted proxies failed").Len())
}
