package export

import (
	"bytes"
	"testing"

	"tableslate/server/internal/scene"
)

func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	alloc := scene.NewAllocator()
	s := scene.NewCanonScene(alloc)
	s.Title = "Goblin Warrens"
	s.NewSprite(100, s.Layers[0].LocalID)
	s.NewSprite(101, s.Layers[1].LocalID)
	return s
}

func TestPDFProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, testScene(t)); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF")
	}
	if buf.Len() < 500 {
		t.Fatalf("output suspiciously small: %d bytes", buf.Len())
	}
}

func TestPDFSkipsHiddenLayers(t *testing.T) {
	s := testScene(t)

	var visible bytes.Buffer
	if err := PDF(&visible, s); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	for _, l := range s.Layers {
		l.Visible = false
	}
	var hidden bytes.Buffer
	if err := PDF(&hidden, s); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	if hidden.Len() >= visible.Len() {
		t.Fatalf("hiding every layer did not shrink the page: %d >= %d",
			hidden.Len(), visible.Len())
	}
}

func TestPDFFile(t *testing.T) {
	path := t.TempDir() + "/scene.pdf"
	if err := PDFFile(path, testScene(t)); err != nil {
		t.Fatalf("export failed: %v", err)
	}
}
