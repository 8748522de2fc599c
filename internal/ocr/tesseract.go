package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TesseractCLI shells out to the tesseract binary.
type TesseractCLI struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string
	OEM         int // leave 0 to use the binary's default
	Runner      Runner
}

func NewTesseractCLI(binary, tessdataDir string, oem int, runner Runner) *TesseractCLI {
	if binary == "" {
		binary = "tesseract"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &TesseractCLI{Binary: binary, TessdataDir: tessdataDir, OEM: oem, Runner: runner}
}

func (t *TesseractCLI) Name() string { return "tesseract-cli" }

// Recognize runs: tesseract <file> stdout -l <lang> --psm <n> [--oem <n>] [--tessdata-dir <dir>]
func (t *TesseractCLI) Recognize(ctx context.Context, in Input, a Attempt) (string, error) {
	if in.Path == "" {
		return "", fmt.Errorf("tesseract: input has no file path")
	}
	args := []string{in.Path, "stdout", "-l", a.Lang, "--psm", strconv.Itoa(a.PSM)}
	if t.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.OEM))
	}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	out, errb, err := t.Runner.Run(ctx, t.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, Truncate(strings.TrimSpace(string(errb)), 512))
	}
	return string(out), nil
}
