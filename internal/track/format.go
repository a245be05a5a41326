package track

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// input grammar of a track
type Format string

const (
	FormatWebVTT Format = "vtt"
	FormatTTML   Format = "ttml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vtt", "webvtt":
		return FormatWebVTT, nil
	case "ttml", "dfxp", "xml":
		return FormatTTML, nil
	default:
		return "", fmt.Errorf("unsupported track format %q: use vtt or ttml", s)
	}
}

// guesses the format from the file extension, then from the leading bytes
func DetectFormat(path string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return FormatWebVTT, nil
	case ".ttml", ".dfxp", ".xml":
		return FormatTTML, nil
	}

	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimLeft(head, " \t\r\n")
	switch {
	case bytes.HasPrefix(head, []byte("WEBVTT")):
		return FormatWebVTT, nil
	case bytes.HasPrefix(head, []byte("<")):
		return FormatTTML, nil
	default:
		return "", fmt.Errorf("cannot detect subtitle format of %s", path)
	}
}
