package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes external tools (tesseract, pdftotext, pdftoppm). Tests swap
// in fakes so no binary is needed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec. Env entries are appended to the
// process environment; OMP_THREAD_LIMIT=1 keeps tesseract from oversubscribing
// CPUs when several documents are recognized in parallel.
type ExecRunner struct {
	Logger *slog.Logger
	Env    []string
}

const maxLoggedStderr = 8 << 10

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	began := time.Now()
	err := cmd.Run()
	attrs := []any{"cmd", name, "args", strings.Join(args, " "), "duration_ms", time.Since(began).Milliseconds()}
	if err != nil {
		log.Error("external command failed", append(attrs, "error", err, "stderr", Truncate(stderr.String(), maxLoggedStderr))...)
	} else {
		log.Debug("external command finished", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// Truncate caps s at max bytes for logs and error messages.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
