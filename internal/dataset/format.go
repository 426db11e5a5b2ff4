package dataset

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/mikey/spam-classifier/internal/core"
)

// Format is the detected layout of a corpus file
type Format int

const (
	// FormatUnknown is returned alongside an error
	FormatUnknown Format = iota
	// FormatCSV is UTF-8 delimited text
	FormatCSV
	// FormatCSVLatin1 is delimited text that is not valid UTF-8 and is read as Latin-1
	FormatCSVLatin1
	// FormatXLS is a legacy OLE2 workbook
	FormatXLS
	// FormatXLSX is a zipped OOXML workbook
	FormatXLSX
)

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatCSVLatin1:
		return "csv-latin1"
	case FormatXLS:
		return "xls"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// IsText reports whether the format can be parsed as delimited text
func (f Format) IsText() bool {
	return f == FormatCSV || f == FormatCSVLatin1
}

// DetectFormat inspects the content of path, ignoring its extension
func DetectFormat(path string) (Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: failed to read %s: %v", core.ErrInput, path, err)
	}
	return Detect(data)
}

// Detect classifies raw file content
func Detect(data []byte) (Format, error) {
	switch {
	case len(data) == 0:
		return FormatUnknown, fmt.Errorf("%w: file is empty", core.ErrInput)
	case bytes.HasPrefix(data, ole2Magic):
		return FormatXLS, nil
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case utf8.Valid(bytes.TrimPrefix(data, utf8BOM)):
		return FormatCSV, nil
	default:
		return FormatCSVLatin1, nil
	}
}
