package scene

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Format is one file format decoder. DecodeFile is used when the asset
// lives on disk (formats with sidecar files need the path to resolve
// them); DecodeData decodes an in-memory buffer and therefore cannot
// reach external resources.
type Format interface {
	DecodeFile(path string) (*Scene, error)
	DecodeData(data []byte) (*Scene, error)
}

var formatHandlers = map[string]Format{}

// SetFormatHandler registers a decoder for the given extensions
// (lower-case, with dot). Called from format packages' init().
func SetFormatHandler(f Format, extensions ...string) {
	for _, ext := range extensions {
		formatHandlers[ext] = f
	}
}

func SupportedExtensions() []string {
	exts := make([]string, 0, len(formatHandlers))
	for ext := range formatHandlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func handlerForExt(ext string) (Format, error) {
	f, ok := formatHandlers[strings.ToLower(ext)]
	if !ok {
		return nil, errors.Errorf("Unsupported asset format %q", ext)
	}
	return f, nil
}

func OpenFile(path string) (*Scene, error) {
	f, err := handlerForExt(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	s, err := f.DecodeFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %q", path)
	}
	return s, nil
}

// DecodeData decodes an in-memory asset. formatHint is the extension of
// the original file, including the dot.
func DecodeData(data []byte, formatHint string) (*Scene, error) {
	f, err := handlerForExt(formatHint)
	if err != nil {
		return nil, err
	}

	s, err := f.DecodeData(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %q data", formatHint)
	}
	return s, nil
}
