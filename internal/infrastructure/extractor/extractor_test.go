package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type storageFake struct {
	files map[string][]byte
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[key] = raw
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func dispatcherWith(t *testing.T, filename string, raw []byte) (*Dispatcher, *domain.Document) {
	t.Helper()
	storage := &storageFake{files: map[string][]byte{"key": raw}}
	doc := &domain.Document{ID: "doc-1", Filename: filename, StoragePath: "key"}
	return NewDispatcher(storage), doc
}

func TestExtractPlaintext(t *testing.T) {
	d, doc := dispatcherWith(t, "notes.md", []byte("  # Title\n\nbody text  \n"))
	text, err := d.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# Title\n\nbody text" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractPlaintextRejectsBinary(t *testing.T) {
	d, doc := dispatcherWith(t, "data.txt", []byte{0xff, 0xfe, 0x00, 0x01})
	_, err := d.Extract(context.Background(), doc)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	d, doc := dispatcherWith(t, "archive.tar.gz", []byte("whatever"))
	_, err := d.Extract(context.Background(), doc)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestExtractCSVJoinsFields(t *testing.T) {
	raw := []byte("name,amount\nwidget,12\n\ngadget,7\n")
	d, doc := dispatcherWith(t, "sales.csv", raw)
	text, err := d.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "name\tamount\nwidget\t12\ngadget\t7"
	if text != want {
		t.Fatalf("unexpected text: %q, want %q", text, want)
	}
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "quarter"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "revenue"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "Q3"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B2", "1400"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	d, doc := dispatcherWith(t, "report.xlsx", buf.Bytes())
	text, err := d.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "Sheet: Sheet1") {
		t.Fatalf("expected sheet header in %q", text)
	}
	if !strings.Contains(text, "Q3\t1400") {
		t.Fatalf("expected row content in %q", text)
	}
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := entry.Write([]byte(docXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	d, doc := dispatcherWith(t, "letter.docx", buf.Bytes())
	text, err := d.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "First paragraph.\nSecond paragraph." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	d, doc := dispatcherWith(t, "broken.pdf", []byte("not a pdf"))
	if _, err := d.Extract(context.Background(), doc); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestExtractHTMLSkipsScriptAndStyle(t *testing.T) {
	raw := []byte(`<!DOCTYPE html>
<html><head>
  <title>Refund policy</title>
  <style>body { color: red; }</style>
  <script>console.log("tracking");</script>
</head>
<body>
  <h1>Refunds</h1>
  <p>Refunds are issued within <b>30 days</b>.</p>
</body></html>`)

	d, doc := dispatcherWith(t, "policy.html", raw)
	text, err := d.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "Refunds are issued within 30 days") {
		t.Fatalf("expected body text in %q", text)
	}
	if strings.Contains(text, "color: red") || strings.Contains(text, "tracking") {
		t.Fatalf("style/script content leaked into %q", text)
	}
}

func TestExtractXMLCollectsCharData(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?>
<catalog>
  <item sku="w-1"><name>Widget</name><price>12.50</price></item>
  <item sku="g-2"><name>Gadget</name><price>7.00</price></item>
</catalog>`)

	d, doc := dispatcherWith(t, "catalog.xml", raw)
	text, err := d.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Widget\n12.50\nGadget\n7.00" {
		t.Fatalf("unexpected text: %q", text)
	}
	if strings.Contains(text, "w-1") {
		t.Fatalf("attributes must be dropped, got %q", text)
	}
}

func TestExtractMalformedXMLIsInvalidInput(t *testing.T) {
	d, doc := dispatcherWith(t, "broken.xml", []byte("<open><unclosed></open>"))
	_, err := d.Extract(context.Background(), doc)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}
