package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
)

const (
	docxDocumentPart = "word/document.xml"
	docxRelsPart     = "word/_rels/document.xml.rels"
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	imageRelSuffix   = "/image"
)

// DocxStrategy reads paragraph text and OCRs every embedded image.
type DocxStrategy struct {
	raster *rasterOCR
}

func (*DocxStrategy) Format() constants.Format { return constants.DOCX }

func (s *DocxStrategy) Extract(ctx context.Context, src Source) (*Result, error) {
	pkg, err := openDocx(src.Data)
	if err != nil {
		return nil, err
	}
	paras, err := pkg.paragraphs()
	if err != nil {
		return nil, err
	}
	res := &Result{Pages: 1}
	for i, p := range paras {
		res.add(Fragment{Kind: KindParagraph, Index: i + 1, Method: "docx-paragraph", Text: p})
	}

	rels, err := pkg.imageRels()
	if err != nil {
		res.warn(common.PartialFailure("docx relationships", err))
		return res, nil
	}
	for i, rel := range rels {
		where := fmt.Sprintf("docx image %d (%s)", i+1, rel.Target)
		data, err := pkg.read(rel.part())
		if err != nil {
			res.warn(common.PartialFailure(where, err))
			continue
		}
		frag, w := s.raster.recognizeBytes(ctx, data, where)
		if w != nil {
			res.warn(*w)
			continue
		}
		frag.Kind, frag.Index = KindEmbeddedImage, i+1
		res.add(frag)
	}
	return res, nil
}

type docxPackage struct {
	files map[string]*zip.File
}

func openDocx(data []byte) (*docxPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, common.InputDecodeError("open docx", err)
	}
	pkg := &docxPackage{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		pkg.files[f.Name] = f
	}
	if _, ok := pkg.files[docxDocumentPart]; !ok {
		return nil, common.InputDecodeError("open docx", fmt.Errorf("missing %s", docxDocumentPart))
	}
	return pkg, nil
}

func (p *docxPackage) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// paragraphs returns the text of every non-empty w:p in document order.
// Runs are concatenated verbatim; w:tab and w:br become tab and newline.
func (p *docxPackage) paragraphs() ([]string, error) {
	data, err := p.read(docxDocumentPart)
	if err != nil {
		return nil, common.InputDecodeError("read docx body", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out    []string
		cur    strings.Builder
		depth  int // nesting of w:p, text boxes can nest paragraphs
		inText bool
	)
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			out = append(out, cur.String())
		}
		cur.Reset()
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.InputDecodeError("parse docx body", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth > 0 {
					flush()
				}
				depth++
			case "t":
				inText = true
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				flush()
				depth = max(0, depth-1)
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return out, nil
}

type docxRel struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// part resolves Target against the word/ directory.
func (r docxRel) part() string {
	if strings.HasPrefix(r.Target, "/") {
		return strings.TrimPrefix(r.Target, "/")
	}
	return path.Clean(path.Join("word", r.Target))
}

// imageRels lists internal image relationships in declaration order.
func (p *docxPackage) imageRels() ([]docxRel, error) {
	if _, ok := p.files[docxRelsPart]; !ok {
		return nil, nil
	}
	data, err := p.read(docxRelsPart)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Rels []docxRel `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse relationships: %w", err)
	}
	var out []docxRel
	for _, r := range doc.Rels {
		if strings.HasSuffix(r.Type, imageRelSuffix) && !strings.EqualFold(r.TargetMode, "External") {
			out = append(out, r)
		}
	}
	return out, nil
}

// imageData returns every readable image part in relationship order.
func (p *docxPackage) imageData() [][]byte {
	rels, err := p.imageRels()
	if err != nil {
		return nil
	}
	var out [][]byte
	for _, r := range rels {
		if data, err := p.read(r.part()); err == nil {
			out = append(out, data)
		}
	}
	return out
}
