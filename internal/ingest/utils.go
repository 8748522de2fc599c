package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docverify/constants"
)

// extSet builds a lookup of normalized extensions; empty input means every
// supported extension.
func extSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = constants.SupportedExtensions()
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if e = constants.NormalizeExt(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
