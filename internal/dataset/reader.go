package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/spam-classifier/internal/core"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	labelColumns   = []string{"category", "spam", "label"}
	messageColumns = []string{"message", "text"}
)

// Result is a parsed corpus
type Result struct {
	Documents core.Corpus
	Format    Format
	Rows      int
	Skipped   int
}

// Reader loads labeled corpora from delimited text files
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a new corpus reader
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// Read detects the format of path and parses it. Rows without a label or a
// message are skipped and counted.
func (r *Reader) Read(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", core.ErrInput, path, err)
	}

	format, err := Detect(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !format.IsText() {
		return nil, fmt.Errorf("%w: %s is a %s workbook, export it as CSV first", core.ErrInput, path, format)
	}

	r.logger.Debug("Detected corpus format", zap.String("path", path), zap.Stringer("format", format))

	var src io.Reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	if format == FormatCSVLatin1 {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	result, err := r.parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	result.Format = format

	r.logger.Info("Corpus loaded",
		zap.String("path", path),
		zap.Stringer("format", format),
		zap.Int("rows", result.Rows),
		zap.Int("documents", len(result.Documents)),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (r *Reader) parse(src io.Reader) (*Result, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: corpus has no header", core.ErrInput)
		}
		return nil, fmt.Errorf("%w: failed to read header: %v", core.ErrInput, err)
	}

	labelCol := findColumn(header, labelColumns)
	messageCol := findColumn(header, messageColumns)
	if labelCol < 0 || messageCol < 0 {
		return nil, fmt.Errorf("%w: header %q needs a label column (%s) and a message column (%s)",
			core.ErrInput, header, strings.Join(labelColumns, "/"), strings.Join(messageColumns, "/"))
	}

	result := &Result{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result.Rows++

		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: failed to read row %d: %v", core.ErrInput, result.Rows, err)
			}
			r.logger.Warn("Skipping malformed row", zap.Int("row", result.Rows), zap.Error(err))
			result.Skipped++
			continue
		}

		if labelCol >= len(record) || messageCol >= len(record) {
			r.logger.Warn("Skipping short row", zap.Int("row", result.Rows), zap.Int("fields", len(record)))
			result.Skipped++
			continue
		}

		label, ok := core.ParseLabel(strings.TrimSpace(record[labelCol]))
		message := record[messageCol]
		if !ok || strings.TrimSpace(message) == "" {
			r.logger.Warn("Skipping row without label or message", zap.Int("row", result.Rows))
			result.Skipped++
			continue
		}

		result.Documents = append(result.Documents, core.Document{Text: message, Label: label})
	}

	return result, nil
}

// findColumn returns the index of the first candidate present in header
func findColumn(header []string, candidates []string) int {
	for _, want := range candidates {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				return i
			}
		}
	}
	return -1
}
