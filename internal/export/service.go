// Package export writes batch results as XLSX workbooks or Parquet files.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

// Row is the flat, per-document report record.
type Row struct {
	DocumentID      string  `parquet:"document_id" json:"document_id"`
	Source          string  `parquet:"source" json:"source"`
	Format          string  `parquet:"format" json:"format"`
	Decision        string  `parquet:"decision" json:"decision"`
	Reason          string  `parquet:"reason" json:"reason"`
	TemplateID      string  `parquet:"template_id" json:"template_id"`
	Category        string  `parquet:"category" json:"category"`
	MatchConfidence float64 `parquet:"match_confidence" json:"match_confidence"`
	MatchMethod     string  `parquet:"match_method" json:"match_method"`
	Genuineness     float64 `parquet:"genuineness" json:"genuineness"`
	Verification    float64 `parquet:"verification" json:"verification"`
	FieldFillRatio  float64 `parquet:"field_fill_ratio" json:"field_fill_ratio"`
	MissingFields   string  `parquet:"missing_fields" json:"missing_fields"`
	FieldsJSON      string  `parquet:"fields_json" json:"fields_json"`
	Warnings        int32   `parquet:"warnings" json:"warnings"`
	ErrorCode       string  `parquet:"error_code" json:"error_code"`
	Error           string  `parquet:"error" json:"error"`
	DurationMs      int64   `parquet:"duration_ms" json:"duration_ms"`
}

// Rows flattens batch items in order. Failed documents keep their error.
func Rows(items []pipeline.BatchItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		r := Row{DocumentID: it.Document.ID, Source: it.Document.Path}
		if it.Err != nil {
			r.ErrorCode = common.ErrorCode(it.Err)
			r.Error = it.Err.Error()
			rows = append(rows, r)
			continue
		}
		res := it.Result
		if res == nil {
			continue
		}
		r.DocumentID = res.ID
		r.Source = res.Source
		r.Format = string(res.Format)
		r.Decision = string(res.Decision)
		r.Reason = res.Reason
		r.TemplateID = res.Match.TemplateID
		r.Category = string(res.Match.Category)
		r.MatchConfidence = res.Match.Confidence
		r.MatchMethod = res.Match.Method
		r.Genuineness = res.Genuineness
		r.Verification = res.Verification.Score
		r.FieldFillRatio = res.FieldFillRatio
		r.MissingFields = strings.Join(res.MissingFields, ",")
		if len(res.Fields) > 0 {
			b, err := json.Marshal(res.Fields)
			if err == nil {
				r.FieldsJSON = string(b)
			}
		}
		r.Warnings = int32(len(res.Warnings))
		r.DurationMs = res.Duration.Milliseconds()
		rows = append(rows, r)
	}
	return rows
}

// Service renders batch reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

const (
	resultsSheet = "Results"
	fieldsSheet  = "Fields"
)

var resultHeaders = []string{
	"Source",
	"Document ID",
	"Format",
	"Decision",
	"Reason",
	"Template",
	"Category",
	"Match Confidence",
	"Genuineness",
	"Verification",
	"Field Fill Ratio",
	"Missing Fields",
	"Warnings",
	"Error",
}

// ResultsXLSX returns a workbook with one row per document on "Results" and
// one row per extracted field on "Fields".
func (s *Service) ResultsXLSX(items []pipeline.BatchItem) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(resultsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow := func(sheet string, row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	header := make([]any, len(resultHeaders))
	for i, h := range resultHeaders {
		header[i] = h
	}
	if err := writeRow(resultsSheet, 1, header...); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}
	if err := writeRow(fieldsSheet, 1, "Source", "Document ID", "Field", "Value", "Required"); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}

	row, fieldRow := 2, 2
	for _, r := range Rows(items) {
		errText := r.Error
		if r.ErrorCode != "" {
			errText = r.ErrorCode + ": " + r.Error
		}
		if err := writeRow(resultsSheet, row,
			r.Source, r.DocumentID, r.Format, r.Decision, truncate(r.Reason, 140),
			r.TemplateID, r.Category, r.MatchConfidence, r.Genuineness, r.Verification,
			r.FieldFillRatio, r.MissingFields, r.Warnings, truncate(errText, 200),
		); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", row, err)
		}
		row++
	}

	for _, it := range items {
		if it.Result == nil {
			continue
		}
		names := make([]string, 0, len(it.Result.Fields))
		for name := range it.Result.Fields {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			required := slices.Contains(it.Result.RequiredFields, name)
			if err := writeRow(fieldsSheet, fieldRow, it.Result.Source, it.Result.ID, name, it.Result.Fields[name], required); err != nil {
				return nil, fmt.Errorf("xlsx field row %d: %w", fieldRow, err)
			}
			fieldRow++
		}
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 48) // source
	_ = f.SetColWidth(resultsSheet, "B", "B", 38) // id
	_ = f.SetColWidth(resultsSheet, "D", "E", 30) // decision, reason
	_ = f.SetColWidth(resultsSheet, "N", "N", 60) // error
	_ = f.SetColWidth(fieldsSheet, "A", "A", 48)
	_ = f.SetColWidth(fieldsSheet, "C", "D", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "rows", row-2, "fields", fieldRow-2, "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// WriteParquet streams rows as a Parquet file to w.
func (s *Service) WriteParquet(w io.Writer, items []pipeline.BatchItem) error {
	rows := Rows(items)
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("parquet write: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}
	s.logger.Info("export.parquet.ok", "rows", len(rows))
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
