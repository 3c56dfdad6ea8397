package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Homework",
		Headers: []string{"Date", "Subject", "Description"},
		Rows: [][]string{
			{"2024-05-02", "Art", "Draw a tree"},
			{"2024-05-01", "Math"},
		},
		Widths: []float64{1, 1, 4},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, ".xlsx", f.Extension())

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestCSVExporterPadsShortRows(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2024-05-01", "Math", ""}, records[2])
}

func TestPDFExporterRenders(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterWritesRows(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Homework")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Subject", rows[0][1])
	assert.Equal(t, "Draw a tree", rows[1][2])
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		r, err := For(f)
		require.NoError(t, err)
		_, err = r.Render(Dataset{})
		assert.Error(t, err, string(f))
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "ab", sheetName("a/b"))
	assert.Equal(t, "Sheet1", sheetName("[]"))
	assert.Len(t, []rune(sheetName("this title is far longer than thirty one characters")), 31)
}
