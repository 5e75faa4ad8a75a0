package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSupported(t *testing.T) {
	for _, ext := range []string{".md", ".MD", ".markdown", ".txt", ".pdf", ".xlsx", ".docx"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	for _, ext := range []string{".pptx", ".exe", ""} {
		if Supported(ext) {
			t.Errorf("Supported(%q) = true", ext)
		}
	}
	if got := Extensions(); len(got) != 6 || got[0] != ".docx" {
		t.Errorf("Extensions() = %v", got)
	}
}

func TestBytes_plain(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ext     string
		want    string
	}{
		{"markdown", "# Title\n\nbody", ".md", "# Title\n\nbody"},
		{"crlf", "a\r\nb", ".txt", "a\nb"},
		{"invalid utf8", "hello\x80world", ".markdown", "hello\uFFFDworld"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bytes([]byte(tt.content), tt.ext)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBytes_unsupported(t *testing.T) {
	if _, err := Bytes([]byte("x"), ".bin"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Name")
	_ = f.SetCellValue("Sheet1", "B1", "Qty")
	_ = f.SetCellValue("Sheet1", "A2", "a|b")
	_ = f.SetCellValue("Sheet1", "B2", 3)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Bytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatal(err)
	}
	want := "## Sheet1\n\n| Name | Qty |\n| --- | --- |\n| a\\|b | 3 |"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func docx(files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, _ := w.Create(name)
		_, _ = fw.Write([]byte(body))
	}
	_ = w.Close()
	return buf.Bytes()
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestBytes_docx(t *testing.T) {
	body := `<w:document ` + wordNS + `><w:body>` +
		`<w:p w:rsidR="00A1"><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Plan</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Fish &amp; </w:t></w:r><w:r><w:t>chips</w:t></w:r></w:p>` +
		`<w:p/>` +
		`</w:body></w:document>`
	got, err := Bytes(docx(map[string]string{"word/document.xml": body}), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if want := "## Plan\n\nFish & chips"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBytes_docxContentTypes(t *testing.T) {
	types := `<Types><Override ContentType="` + mainDocumentType + `" PartName="/word/document2.xml"/></Types>`
	body := `<w:document ` + wordNS + `><w:body><w:p><w:r><w:t>moved</w:t></w:r></w:p></w:body></w:document>`
	got, err := Bytes(docx(map[string]string{contentTypesPart: types, "word/document2.xml": body}), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if got != "moved" {
		t.Errorf("got %q", got)
	}
}

func TestBytes_docxErrors(t *testing.T) {
	if _, err := Bytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
	if _, err := Bytes(docx(map[string]string{"other.xml": "x"}), ".docx"); err == nil {
		t.Error("expected error when the document part is missing")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# Note"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "# Note" {
		t.Errorf("got %q", got)
	}
	if _, err := File(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
