package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ukaji3/xlimage-go/pkg/xlimage"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
)

func withData(img models.ExtractedImage, data string) models.ExtractedImage {
	img.Data = []byte(data)
	img.Anchor.Media.Data = img.Data
	return img
}

func defaultNamer(t *testing.T) *Namer {
	t.Helper()
	namer, err := NewNamer(NamingConfig{Mode: NamingDefault}, nil)
	if err != nil {
		t.Fatalf("NewNamer failed: %v", err)
	}
	return namer
}

func TestWriteNamesAndCollisions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	one := models.CellRef{Col: 1, Row: 1}

	images := []models.ExtractedImage{
		withData(floating(0, "Sheet1", one, "xl/media/image1.png"), "a"),
		withData(floating(1, "Sheet1", one, "xl/media/image1.png"), "b"),
		withData(embedded(2, "Sheet1", one, "ID_A"), "c"),
		withData(embedded(3, "Sheet2", one, "ID_A"), "d"),
		withData(embedded(4, "Sheet2", one, "id_a"), "e"),
	}
	noExt := withData(embedded(5, "Sheet2", one, "ID_B"), "f")
	noExt.Ext = ""
	images = append(images, noExt)

	res, err := Write(context.Background(), images, defaultNamer(t), WriteConfig{Dir: dir, Parallelism: 2})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("Unexpected errors: %v", res.Errors)
	}

	expected := []struct {
		name, data string
	}{
		{"FLOAT_image1.png", "a"},
		{"FLOAT_image1-2.png", "b"},
		{"ID_A.png", "c"},
		{"ID_A-2.png", "d"},
		{"id_a-3.png", "e"},
		{"ID_B.png", "f"},
	}
	if len(res.Files) != len(expected) {
		t.Fatalf("Expected %d files, got %d", len(expected), len(res.Files))
	}
	for i, e := range expected {
		f := res.Files[i]
		if f.SequenceIndex != i || f.Path != filepath.Join(dir, e.name) || f.Bytes != len(e.data) {
			t.Errorf("Files[%d] = %+v, expected %s", i, f, e.name)
		}
		data, err := os.ReadFile(filepath.Join(dir, e.name))
		if err != nil || string(data) != e.data {
			t.Errorf("%s = %q, %v, expected %q", e.name, data, err, e.data)
		}
	}
}

func TestWriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ID_A.png"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	img := withData(embedded(0, "Sheet1", models.CellRef{Col: 1, Row: 1}, "ID_A"), "new")

	res, err := Write(context.Background(), []models.ExtractedImage{img}, defaultNamer(t), WriteConfig{Dir: dir})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := filepath.Base(res.Files[0].Path); got != "ID_A-2.png" {
		t.Errorf("Expected a suffixed name next to an existing file, got %s", got)
	}

	res, err = Write(context.Background(), []models.ExtractedImage{img}, defaultNamer(t), WriteConfig{Dir: dir, Overwrite: true})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := filepath.Base(res.Files[0].Path); got != "ID_A.png" {
		t.Errorf("Expected the existing name with Overwrite, got %s", got)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "ID_A.png")); string(data) != "new" {
		t.Errorf("Expected overwritten content, got %q", data)
	}
}

func TestWriteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := withData(embedded(0, "Sheet1", models.CellRef{Col: 1, Row: 1}, "ID_A"), "x")
	if _, err := Write(ctx, []models.ExtractedImage{img}, defaultNamer(t), WriteConfig{Dir: t.TempDir()}); err == nil {
		t.Error("Expected an error for a canceled context")
	}
}

func TestWriteUnwritableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Write(context.Background(), nil, defaultNamer(t), WriteConfig{Dir: filepath.Join(blocker, "sub")})
	if err == nil {
		t.Error("Expected an error when the output directory cannot be created")
	}
}

func TestManifest(t *testing.T) {
	one := models.CellRef{Col: 2, Row: 3}
	res := &xlimage.Result{
		BookName: "book.xlsx",
		Images: []models.ExtractedImage{
			withData(floating(0, "Sheet1", one, "xl/media/image1.png"), "a"),
			withData(embedded(1, "Sheet1", one, "ID_A"), "b"),
		},
		Warnings: []models.Warning{{Sheet: "Sheet1", Ref: "column Z", Err: xlimage.ErrColumnNotFound}},
	}
	res.Images[0].MIMEType = "image/png"

	wr := &WriteResult{Files: []Written{{SequenceIndex: 1, Path: "out/ID_A.png", Bytes: 1}}}
	m := NewManifest(res, wr)

	if m.BookName != "book.xlsx" || len(m.Images) != 2 {
		t.Fatalf("Unexpected manifest: %+v", m)
	}
	if m.Images[0].File != "" || m.Images[1].File != "out/ID_A.png" {
		t.Errorf("Unexpected files: %q, %q", m.Images[0].File, m.Images[1].File)
	}
	if m.Images[0].Cell != "B3" || m.Images[0].Kind != "floating" || m.Images[1].ImageID != "ID_A" {
		t.Errorf("Unexpected entries: %+v", m.Images)
	}
	if len(m.Warnings) != 1 || m.Warnings[0] != `sheet "Sheet1", column Z: column not found` {
		t.Errorf("Unexpected warnings: %v", m.Warnings)
	}

	data, err := ToJSON(m, false)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Manifest is not valid JSON: %v", err)
	}
	if decoded["book_name"] != "book.xlsx" {
		t.Errorf("Unexpected book_name: %v", decoded["book_name"])
	}

	pretty, err := ToJSON(NewManifest(res, nil), true)
	if err != nil || !strings.Contains(string(pretty), "\n  \"book_name\"") {
		t.Errorf("Expected indented output, got %s (%v)", pretty, err)
	}
}
