package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Thresholds.MinMatchConfidence != 0.4 || cfg.Thresholds.MinGenuineness != 0.6 || cfg.Thresholds.Verification != 0.5 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Thresholds)
	}
	if cfg.Extract.MinPageText != 50 || cfg.Extract.RenderDPI != 400 {
		t.Fatalf("unexpected extract config: %+v", cfg.Extract)
	}
	if cfg.Genuineness.Penalty != 0.2 || cfg.Genuineness.BonusCap != 0.3 {
		t.Fatalf("unexpected genuineness config: %+v", cfg.Genuineness)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	body := "templates:\n  dir: /srv/templates\nthresholds:\n  min_genuineness: 0.7\nocr:\n  languages: [eng, eng+hin]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCVERIFY_THRESHOLDS_VERIFICATION", "0.65")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Templates.Dir != "/srv/templates" {
		t.Errorf("templates.dir = %q", cfg.Templates.Dir)
	}
	if cfg.Thresholds.MinGenuineness != 0.7 {
		t.Errorf("min_genuineness = %v", cfg.Thresholds.MinGenuineness)
	}
	if cfg.Thresholds.Verification != 0.65 {
		t.Errorf("verification = %v, want env override", cfg.Thresholds.Verification)
	}
	if len(cfg.OCR.Languages) != 2 || cfg.OCR.Languages[1] != "eng+hin" {
		t.Errorf("languages = %v", cfg.OCR.Languages)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cfg := &Config{
		Templates:  TemplatesConfig{Dir: "x"},
		OCR:        OCRConfig{Engine: "magic"},
		Extract:    ExtractConfig{RenderDPI: 400, PreviewDPI: 150},
		Thresholds: ThresholdsConfig{MinMatchConfidence: 1.5},
		Log:        LogConfig{Format: "text"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if ErrorCode(err) != CodeConfig {
		t.Errorf("code = %s", ErrorCode(err))
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("config errors should wrap ErrInvalidInput")
	}
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{UnsupportedFormatError("xyz"), codes.InvalidArgument},
		{InputDecodeError("bad png", errors.New("eof")), codes.InvalidArgument},
		{status.Error(codes.InvalidArgument, "nope"), codes.InvalidArgument},
		{NewAppError(CodeTemplateLoad, "skipped", ErrTemplateLoad), codes.FailedPrecondition},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.want {
			t.Errorf("StatusCode(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestInputDecodeErrorChain(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := InputDecodeError("decode image", cause)
	if !errors.Is(err, ErrInputDecode) || !errors.Is(err, cause) {
		t.Fatalf("chain lost: %v", err)
	}
	if ErrorCode(err) != CodeInputDecode {
		t.Fatalf("code = %s", ErrorCode(err))
	}
}

func TestWithTempDirRemovesOnError(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	var seen string
	want := errors.New("step failed")
	err := WithTempDir("dv-test-*", func(dir string) error {
		seen = dir
		return os.WriteFile(filepath.Join(dir, "page.png"), []byte("x"), 0o600)
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, statErr := os.Stat(seen); !os.IsNotExist(statErr) {
		t.Fatalf("temp dir %s still present", seen)
	}

	err = WithTempDir("dv-test-*", func(dir string) error {
		seen = dir
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(seen); !os.IsNotExist(statErr) {
		t.Fatalf("temp dir %s still present after error", seen)
	}
}

func TestWithTempDirRemovesOnPanic(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	var seen string
	func() {
		defer func() { _ = recover() }()
		_ = WithTempDir("dv-test-*", func(dir string) error {
			seen = dir
			panic("ocr crashed")
		})
	}()
	if _, statErr := os.Stat(seen); !os.IsNotExist(statErr) {
		t.Fatalf("temp dir %s still present after panic", seen)
	}
}

func TestDocumentIDContext(t *testing.T) {
	ctx := WithDocumentID(context.Background(), "doc-1")
	if got := DocumentIDFromContext(ctx); got != "doc-1" {
		t.Fatalf("got %q", got)
	}
	if got := DocumentIDFromContext(context.Background()); got != "" {
		t.Fatalf("got %q", got)
	}
}
