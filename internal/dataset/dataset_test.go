package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"utf8 csv", []byte("Category,Message\nham,hi\n"), FormatCSV},
		{"utf8 csv with bom", append([]byte{0xEF, 0xBB, 0xBF}, "Category,Message\n"...), FormatCSV},
		{"latin1 csv", []byte("Category,Message\nham,caf\xe9\n"), FormatCSVLatin1},
		{"xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0}, FormatXLS},
		{"xlsx", []byte("PK\x03\x04rest"), FormatXLSX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Detect(nil)
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestDetectFormat(t *testing.T) {
	path := writeFile(t, "mail_data.xlsx", []byte("Category,Message\nspam,win\n"))

	format, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format, "extension must not matter")

	_, err = DetectFormat(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestRead(t *testing.T) {
	data := "Category,Message\n" +
		"ham,\"Go until jurong point, crazy..\"\n" +
		"spam,Free entry in 2 a wkly comp to win FA Cup final tkts\n" +
		"Spam,capitalised category is not spam\n" +
		",no label\n" +
		"ham,\n" +
		"ham\n" +
		"ham,Ok lar...\n"
	path := writeFile(t, "mail_data.csv", []byte(data))

	result, err := NewReader(zaptest.NewLogger(t)).Read(path)
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, result.Format)
	assert.Equal(t, 7, result.Rows)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Documents, 4)

	assert.Equal(t, core.Document{Text: "Go until jurong point, crazy..", Label: core.NotSpam}, result.Documents[0])
	assert.Equal(t, core.Spam, result.Documents[1].Label)
	assert.Equal(t, core.NotSpam, result.Documents[2].Label)
	assert.Equal(t, "Ok lar...", result.Documents[3].Text)
}

func TestReadLatin1(t *testing.T) {
	path := writeFile(t, "latin.csv", []byte("spam,message\nham,caf\xe9 at noon\n"))

	result, err := NewReader(nil).Read(path)
	require.NoError(t, err)

	assert.Equal(t, FormatCSVLatin1, result.Format)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "café at noon", result.Documents[0].Text)
}

func TestReadHeaderVariants(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"original", "Category,Message"},
		{"normalized", "spam,message"},
		{"label text", "LABEL , Text"},
		{"reordered", "Message,Category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := "spam,hello"
			if tt.name == "reordered" {
				row = "hello,spam"
			}
			path := writeFile(t, "c.csv", []byte(tt.header+"\n"+row+"\n"))

			result, err := NewReader(nil).Read(path)
			require.NoError(t, err)
			require.Len(t, result.Documents, 1)
			assert.Equal(t, core.Document{Text: "hello", Label: core.Spam}, result.Documents[0])
		})
	}
}

func TestReadBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, "Category,Message\nham,hi\n"...))

	result, err := NewReader(nil).Read(path)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"missing columns", []byte("id,body\n1,hello\n")},
		{"workbook", []byte("PK\x03\x04....")},
		{"legacy workbook", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.data)
			_, err := NewReader(nil).Read(path)
			assert.ErrorIs(t, err, core.ErrInput)
		})
	}

	_, err := NewReader(nil).Read(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "csv", FormatCSV.String())
	assert.Equal(t, "xlsx", FormatXLSX.String())
	assert.True(t, FormatCSVLatin1.IsText())
	assert.False(t, FormatXLS.IsText())
}
