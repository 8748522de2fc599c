package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/imaging"
	"github.com/joseph-ayodele/docverify/internal/ocr"
)

// fakeRecognizer answers by image width so tests can tell images apart.
type fakeRecognizer struct {
	mu     sync.Mutex
	byW    map[int]string
	failW  map[int]bool
	calls  int
	widths []int
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) (ocr.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	w := img.Bounds().Dx()
	f.widths = append(f.widths, w)
	if f.failW[w] {
		return ocr.Outcome{}, errors.New("ocr engine crashed")
	}
	return ocr.Outcome{Text: f.byW[w], Engine: "fake", Attempt: ocr.Attempt{PSM: 6, Lang: "eng"}}, nil
}

func pngOfWidth(t *testing.T, w int) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(image.NewGray(image.Rect(0, 0, w, 4)))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type fakePage struct {
	text      string
	textErr   error
	renderW   int // width of the rendered page image; 0 = render fails
	images    []EmbeddedImage
	imagesErr error
}

type fakePDF struct {
	pages    []fakePage
	openErr  error
	renders  int
	renderIn []string
	closed   bool
}

func (f *fakePDF) Open(_ context.Context, path string, data []byte) (PDFDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if path == "" {
		return nil, errors.New("no path")
	}
	return f, nil
}

func (f *fakePDF) PageCount() int { return len(f.pages) }

func (f *fakePDF) PageText(_ context.Context, page int) (string, error) {
	p := f.pages[page-1]
	return p.text, p.textErr
}

func (f *fakePDF) RenderPage(_ context.Context, page, dpi int, dir string) (image.Image, error) {
	f.renders++
	f.renderIn = append(f.renderIn, dir)
	p := f.pages[page-1]
	if p.renderW == 0 {
		return nil, errors.New("pdftoppm: exit status 99")
	}
	// leave a file behind in the scratch dir like pdftoppm does
	_ = os.WriteFile(fmt.Sprintf("%s/page-%d.png", dir, page), []byte("png"), 0o600)
	return image.NewGray(image.Rect(0, 0, p.renderW, 4)), nil
}

func (f *fakePDF) PageImages(_ context.Context, page int) ([]EmbeddedImage, error) {
	p := f.pages[page-1]
	return p.images, p.imagesErr
}

func (f *fakePDF) Close() error { f.closed = true; return nil }

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp root still holds %d entries", len(entries))
	}
}

func TestResolveUnsupported(t *testing.T) {
	d := New(Config{}, &fakeRecognizer{}, &fakePDF{}, nil)
	_, err := d.Resolve(".xyz")
	if !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), `"xyz"`) {
		t.Fatalf("error should name the extension: %v", err)
	}
	if _, err := d.ExtractText(context.Background(), Source{Path: "/does/not/exist.xyz"}); !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("ExtractText err = %v", err)
	}
}

func TestPlainTextPassthrough(t *testing.T) {
	d := New(Config{}, nil, nil, nil)
	in := "  Name: Jane Roe\n\tDOB: 01/02/1980  "
	res, err := d.ExtractText(context.Background(), Source{ID: "t1", Data: []byte(in), Ext: "txt"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != in || res.Format != constants.TXT || res.SourceID != "t1" {
		t.Fatalf("got %+v", res)
	}
	if _, err := d.ExtractText(context.Background(), Source{Data: []byte{0xff, 0xfe, 0x00}, Ext: "txt"}); !errors.Is(err, common.ErrInputDecode) {
		t.Fatalf("invalid utf-8 err = %v", err)
	}
}

func TestImageStrategy(t *testing.T) {
	rec := &fakeRecognizer{byW: map[int]string{9: "AADHAAR 1234 5678 9012"}}
	d := New(Config{}, rec, nil, nil)

	res, err := d.ExtractText(context.Background(), Source{Data: pngOfWidth(t, 9), Ext: ".png"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "AADHAAR 1234 5678 9012" || len(res.Fragments) != 1 || res.Fragments[0].Kind != KindImageOCR {
		t.Fatalf("got %+v", res)
	}

	if _, err := d.ExtractText(context.Background(), Source{Data: []byte("not png"), Ext: ".png"}); !errors.Is(err, common.ErrInputDecode) {
		t.Fatalf("undecodable image err = %v", err)
	}

	rec.failW = map[int]bool{9: true}
	res, err = d.ExtractText(context.Background(), Source{Data: pngOfWidth(t, 9), Ext: ".png"})
	if err != nil {
		t.Fatalf("ocr failure must degrade, got %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != common.CodeExtractionPartial || res.Text != "" {
		t.Fatalf("got %+v", res)
	}
}

func TestPDFEmbeddedTextNeverRasterizes(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	long := strings.Repeat("Government of India issued identity record. ", 6) // > 200 chars
	pdf := &fakePDF{pages: []fakePage{{text: long, renderW: 7}, {text: long, renderW: 7}, {text: long, renderW: 7}}}
	rec := &fakeRecognizer{}
	d := New(Config{}, rec, pdf, nil)

	res, err := d.ExtractText(context.Background(), Source{Data: []byte("%PDF-1.7"), Ext: "pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if pdf.renders != 0 || rec.calls != 0 {
		t.Fatalf("raster fallback used: renders=%d ocr=%d", pdf.renders, rec.calls)
	}
	if res.Pages != 3 || len(res.Fragments) != 3 {
		t.Fatalf("pages=%d fragments=%d", res.Pages, len(res.Fragments))
	}
	for i, f := range res.Fragments {
		if f.Kind != KindPageText || f.Page != i+1 {
			t.Fatalf("fragment %d = %+v", i, f)
		}
	}
	if !pdf.closed {
		t.Fatal("document not closed")
	}
	assertEmptyDir(t, tmp)
}

func TestPDFShortPageFallsBackToOCR(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	pdf := &fakePDF{pages: []fakePage{
		{text: "scan", renderW: 11},
		{text: "too short", renderW: 0},
	}}
	rec := &fakeRecognizer{byW: map[int]string{11: "PASSPORT P1234567"}}
	d := New(Config{MinPageText: 50, RenderDPI: 400}, rec, pdf, nil)

	res, err := d.ExtractText(context.Background(), Source{Data: []byte("%PDF"), Ext: "pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if pdf.renders != 2 {
		t.Fatalf("renders = %d", pdf.renders)
	}
	if res.Fragments[0].Kind != KindPageOCR || res.Fragments[0].Text != "PASSPORT P1234567" {
		t.Fatalf("page 1 = %+v", res.Fragments[0])
	}
	// render failure keeps the short embedded text and records a warning
	if res.Fragments[1].Kind != KindPageText || res.Fragments[1].Text != "too short" {
		t.Fatalf("page 2 = %+v", res.Fragments[1])
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Source, "page 2") {
		t.Fatalf("warnings = %+v", res.Warnings)
	}
	assertEmptyDir(t, tmp)
}

func TestPDFEmbeddedImagesAlwaysOCRd(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	long := strings.Repeat("x", 80)
	pdf := &fakePDF{pages: []fakePage{{
		text: long,
		images: []EmbeddedImage{
			{Name: "Im1", Data: pngOfWidth(t, 5)},
			{Name: "Im2", Data: []byte("jbig2 garbage")},
			{Name: "Im3", Data: pngOfWidth(t, 6)},
		},
	}}}
	rec := &fakeRecognizer{byW: map[int]string{5: "photo caption", 6: "signature"}, failW: map[int]bool{6: true}}
	d := New(Config{}, rec, pdf, nil)

	res, err := d.ExtractText(context.Background(), Source{Data: []byte("%PDF"), Ext: "pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if pdf.renders != 0 {
		t.Fatal("page had enough text")
	}
	if len(res.Fragments) != 2 || res.Fragments[1].Kind != KindEmbeddedImage || res.Fragments[1].Index != 1 {
		t.Fatalf("fragments = %+v", res.Fragments)
	}
	if res.Text != long+"\nphoto caption" {
		t.Fatalf("text = %q", res.Text)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("want one decode and one ocr warning, got %+v", res.Warnings)
	}
	assertEmptyDir(t, tmp)
}

func TestPDFOpenFailureIsDecodeError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	pdf := &fakePDF{openErr: errors.New("xref table corrupt")}
	d := New(Config{}, &fakeRecognizer{}, pdf, nil)
	_, err := d.ExtractText(context.Background(), Source{Data: []byte("junk"), Ext: "pdf"})
	if !errors.Is(err, common.ErrInputDecode) {
		t.Fatalf("err = %v", err)
	}
	assertEmptyDir(t, tmp)
}

func TestPDFMaxPages(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	long := strings.Repeat("y", 60)
	pdf := &fakePDF{pages: []fakePage{{text: long}, {text: long}, {text: long}}}
	d := New(Config{MaxPages: 2}, &fakeRecognizer{}, pdf, nil)
	res, err := d.ExtractText(context.Background(), Source{Data: []byte("%PDF"), Ext: "pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 2 || len(res.Fragments) != 2 || len(res.Warnings) != 1 {
		t.Fatalf("got pages=%d fragments=%d warnings=%v", res.Pages, len(res.Fragments), res.Warnings)
	}
}

func buildDocx(t *testing.T, body string, rels string, media map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	write("[Content_Types].xml", []byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	write(docxDocumentPart, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+body+`</w:body></w:document>`))
	if rels != "" {
		write(docxRelsPart, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels+`</Relationships>`))
	}
	for name, data := range media {
		write(name, data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const imageRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

func TestDocxParagraphsAndImages(t *testing.T) {
	body := `<w:p><w:r><w:t xml:space="preserve">Name: </w:t></w:r><w:r><w:t>John Smith</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>License Number:</w:t><w:tab/><w:t>DL-0420110149646</w:t></w:r></w:p>`
	rels := `<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
		`<Relationship Id="rId5" Type="` + imageRelType + `" Target="media/image1.png"/>` +
		`<Relationship Id="rId6" Type="` + imageRelType + `" Target="media/image2.emf"/>` +
		`<Relationship Id="rId7" Type="` + imageRelType + `" Target="https://example.org/x.png" TargetMode="External"/>`
	data := buildDocx(t, body, rels, map[string][]byte{
		"word/media/image1.png": pngOfWidth(t, 13),
		"word/media/image2.emf": []byte("emf bytes"),
	})
	rec := &fakeRecognizer{byW: map[int]string{13: "Date of Birth: 12/03/1985"}}
	d := New(Config{}, rec, nil, nil)

	res, err := d.ExtractText(context.Background(), Source{ID: "dl.docx", Data: data, Ext: "docx"})
	if err != nil {
		t.Fatal(err)
	}
	want := "Name: John Smith\nLicense Number:\tDL-0420110149646\nDate of Birth: 12/03/1985"
	if res.Text != want {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Fragments[0].Kind != KindParagraph || res.Fragments[2].Kind != KindEmbeddedImage {
		t.Fatalf("fragments = %+v", res.Fragments)
	}
	if rec.calls != 1 || len(res.Warnings) != 1 {
		t.Fatalf("ocr calls=%d warnings=%+v", rec.calls, res.Warnings)
	}
}

func TestDocxCorrupt(t *testing.T) {
	d := New(Config{}, nil, nil, nil)
	for name, data := range map[string][]byte{
		"not zip":      []byte("PK nope"),
		"missing body": buildDocxWithout(t),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := d.ExtractText(context.Background(), Source{Data: data, Ext: "docx"}); !errors.Is(err, common.ErrInputDecode) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func buildDocxWithout(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPreview(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	pdf := &fakePDF{pages: []fakePage{{text: "x", renderW: 21}}}
	p := NewPreviewer(Config{PreviewDPI: 100}, pdf)
	ctx := context.Background()

	img, err := p.Preview(ctx, Source{Data: pngOfWidth(t, 17), Ext: "png"})
	if err != nil || img.Bounds().Dx() != 17 {
		t.Fatalf("image preview: %v", err)
	}
	img, err = p.Preview(ctx, Source{Data: []byte("%PDF"), Ext: "pdf"})
	if err != nil || img.Bounds().Dx() != 21 {
		t.Fatalf("pdf preview: %v", err)
	}
	if _, err := p.Preview(ctx, Source{Data: []byte("hello"), Ext: "txt"}); !errors.Is(err, ErrNoPreview) {
		t.Fatalf("txt preview err = %v", err)
	}
	noImages := buildDocx(t, `<w:p><w:r><w:t>hi</w:t></w:r></w:p>`, "", nil)
	if _, err := p.Preview(ctx, Source{Data: noImages, Ext: "docx"}); !errors.Is(err, ErrNoPreview) {
		t.Fatalf("docx preview err = %v", err)
	}
	if _, err := p.Preview(ctx, Source{Data: []byte("bad"), Ext: "jpg"}); !errors.Is(err, common.ErrInputDecode) {
		t.Fatalf("bad jpg err = %v", err)
	}
}
