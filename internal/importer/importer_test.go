package importer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/bibcat/internal/merge"
	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/report"
	"github.com/matsen/bibcat/internal/storage"
)

func openStore(t *testing.T, name string) *storage.DB {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type triple struct {
	career, subject, title string
	printed, digital       bool
}

func triples(t *testing.T, db *storage.DB) []triple {
	t.Helper()
	rows, err := db.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	var out []triple
	for _, r := range rows {
		tr := triple{career: r.Career.Name, subject: r.Subject.Name, title: r.Title.NormalizedTitle}
		if r.Acquisition != nil {
			tr.printed = r.Acquisition.AvailablePrinted
			tr.digital = r.Acquisition.AvailableDigital
		}
		out = append(out, tr)
	}
	return out
}

func TestImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, "src.db")
	engine := merge.New(src)

	socio := reference.SubjectRef{Career: "Trabajo Social", Faculty: "Ciencias Sociales", Subject: "Sociología I"}
	metodos := reference.SubjectRef{Career: "Trabajo Social", Faculty: "Ciencias Sociales", Subject: "Métodos"}
	refs := []struct {
		ref  reference.SubjectRef
		raw  reference.RawReference
		kind reference.Kind
	}{
		{socio, reference.RawReference{Author: "Pierre Bourdieu", Title: "La distinción", Publisher: "Taurus"}, reference.KindBasic},
		{socio, reference.RawReference{Author: "Ana Pérez", Title: "Redes sociales", URL: "https://revista.cl/1"}, reference.KindComplementary},
		{metodos, reference.RawReference{Author: "Pierre Bourdieu", Title: "La distinción"}, reference.KindBasic},
	}
	for _, r := range refs {
		if _, err := engine.Merge(ctx, r.ref, r.raw, r.kind); err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
	}

	rows, err := (&report.Generator{Store: src}).Rows(ctx)
	if err != nil {
		t.Fatalf("Generator.Rows() error = %v", err)
	}
	var buf bytes.Buffer
	if err := report.Encode(&buf, rows); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	dst := openStore(t, "dst.db")
	im := &Importer{Engine: merge.New(dst)}
	res, err := im.Import(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Created != 2 || res.Skipped != 1 || res.Invalid != 0 || len(res.Errors) != 0 {
		t.Errorf("Import() = %+v, want 2 created, 1 skipped", res)
	}

	want, got := triples(t, src), triples(t, dst)
	if len(got) != len(want) {
		t.Fatalf("imported %d triples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triple %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	again, err := im.Import(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if again.Created != 0 || again.Skipped != 3 {
		t.Errorf("second Import() = %+v, want everything skipped", again)
	}
	c, err := dst.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c.Titles != 2 || c.Links != 3 {
		t.Errorf("counts = %+v, want 2 titles and 3 links", c)
	}
}

func TestImportOwnReportIntoSameStore(t *testing.T) {
	ctx := context.Background()
	db := openStore(t, "self.db")
	engine := merge.New(db)
	socio := reference.SubjectRef{Career: "Trabajo Social", Faculty: "Ciencias Sociales", Subject: "Sociología I"}

	for _, raw := range []reference.RawReference{
		{Author: "Bourdieu; Passeron", Title: "Los herederos"},
		{Author: "Platón & Aristóteles", Title: "Diálogos"},
		{Author: "Martuccelli, D.", Title: "EL NUEVO GOBIERNO"},
	} {
		if _, err := engine.Merge(ctx, socio, raw, reference.KindBasic); err != nil {
			t.Fatalf("Merge(%q) error = %v", raw.Author, err)
		}
	}

	rows, err := (&report.Generator{Store: db}).Rows(ctx)
	if err != nil {
		t.Fatalf("Generator.Rows() error = %v", err)
	}
	var buf bytes.Buffer
	if err := report.Encode(&buf, rows); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	res, err := (&Importer{Engine: engine}).Import(ctx, &buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Created != 0 || res.Skipped != 3 {
		t.Errorf("Import() = %+v, want 0 created and 3 skipped", res)
	}
	c, err := db.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c.Titles != 3 || c.Links != 3 {
		t.Errorf("counts = %+v, want 3 titles and 3 links", c)
	}
}

func TestImportTalliesInvalidRows(t *testing.T) {
	in := header +
		"CS;Trabajo Social;Sociología I;;Sin autor;;;;0;0;1;0;\n" +
		"CS;Trabajo Social;Sociología I;Max Weber;Economía y sociedad;FCE;;;2;0;1;0;\n"

	db := openStore(t, "bad.db")
	res, err := (&Importer{Engine: merge.New(db)}).Import(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Created != 1 || res.Invalid != 1 {
		t.Errorf("Import() = %+v, want 1 created and 1 invalid", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "line 2") {
		t.Errorf("Errors = %v, want one line-2 reason", res.Errors)
	}

	rows, err := db.Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Acquisition == nil || !rows[0].Acquisition.AvailablePrinted {
		t.Errorf("imported row should carry a printed acquisition: %+v", rows)
	}
	if rows[0].Title.PhysicalAvailability != "2 copias" {
		t.Errorf("PhysicalAvailability = %q", rows[0].Title.PhysicalAvailability)
	}
}

func TestImportBadHeader(t *testing.T) {
	db := openStore(t, "hdr.db")
	_, err := (&Importer{Engine: merge.New(db)}).Import(context.Background(), strings.NewReader("a;b\n"))
	if err == nil {
		t.Fatal("Import() should fail on a header without author/title")
	}
}
