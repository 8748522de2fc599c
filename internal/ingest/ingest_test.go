package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.pdf"), "pdf-a")
	write(t, filepath.Join(root, "b.PNG"), "png-b")
	write(t, filepath.Join(root, "notes.md"), "skip")
	write(t, filepath.Join(root, "sub", "c.txt"), "pdf-a")
	write(t, filepath.Join(root, ".hidden", "d.txt"), "hidden")
	write(t, filepath.Join(root, ".e.docx"), "hidden")

	results, stats, err := CollectDirectory(context.Background(), root, nil, true)
	if err != nil {
		t.Fatalf("CollectDirectory: %v", err)
	}
	var paths []string
	for _, r := range results {
		paths = append(paths, filepath.ToSlash(mustRel(t, root, r.Path)))
	}
	want := []string{"a.pdf", "b.PNG", "sub/c.txt"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths = %v, want %v", paths, want)
		}
	}
	if stats.Matched != 3 || stats.Duplicates != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if results[2].DuplicateOf != results[0].Path || results[0].HashHex == "" || results[0].Size != 5 {
		t.Fatalf("results = %+v", results)
	}

	t.Run("explicit extensions and hidden files", func(t *testing.T) {
		results, _, err := CollectDirectory(context.Background(), root, []string{".TXT"}, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 2 {
			t.Fatalf("results = %+v", results)
		}
	})

	t.Run("empty root", func(t *testing.T) {
		if _, _, err := CollectDirectory(context.Background(), " ", nil, true); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := CollectDirectory(ctx, root, nil, true); err == nil {
			t.Fatal("expected error")
		}
	})
}

func mustRel(t *testing.T, base, path string) string {
	t.Helper()
	rel, err := filepath.Rel(base, path)
	if err != nil {
		t.Fatal(err)
	}
	return rel
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "existing.pdf"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
		SkipHidden:  true,
	})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("no event")
			return ""
		}
	}
	if got := next(); filepath.Base(got) != "existing.pdf" {
		t.Fatalf("initial scan emitted %s", got)
	}

	write(t, filepath.Join(root, "ignored.md"), "x")
	write(t, filepath.Join(root, ".hidden.png"), "x")
	write(t, filepath.Join(root, "new.png"), "x")
	if got := next(); filepath.Base(got) != "new.png" {
		t.Fatalf("emitted %s", got)
	}

	cancel()
	for range events {
	}
}

func TestStartWatcherNoRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Fatal("expected error")
	}
}
