package constants

import (
	"slices"
	"strings"
)

// Format is the capability-tagged variant a document is dispatched on.
type Format string

const (
	IMAGE   Format = "IMAGE"
	PDF     Format = "PDF"
	DOCX    Format = "DOCX"
	TXT     Format = "TXT"
	UNKNOWN Format = ""
)

var extFormats = map[string]Format{
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"bmp":  IMAGE,
	"gif":  IMAGE,
	"pdf":  PDF,
	"docx": DOCX,
	"txt":  TXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns UNKNOWN for anything outside the supported set.
func MapExtToFormat(ext string) Format {
	return extFormats[NormalizeExt(ext)]
}

func IsSupportedExt(ext string) bool {
	return MapExtToFormat(ext) != UNKNOWN
}

// SupportedExtensions returns the supported extensions, sorted, without dots.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extFormats))
	for ext := range extFormats {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// IsRasterExt reports whether the extension can be decoded directly as an image.
func IsRasterExt(ext string) bool {
	return MapExtToFormat(ext) == IMAGE
}
