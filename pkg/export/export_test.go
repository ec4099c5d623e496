package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRow struct {
	ID      string              `json:"id"`
	Amount  decimal.Decimal     `json:"amount"`
	Average decimal.NullDecimal `json:"average"`
	On      time.Time           `json:"on"`
	Count   int                 `json:"count"`
	Note    *string             `json:"note,omitempty"`
	Skipped string `json:"-"`
}

func TestFromRowsFormatsCells(t *testing.T) {
	note := "ok"
	rows := []sampleRow{
		{ID: "a", Amount: decimal.RequireFromString("350.5"), Average: decimal.NewNullDecimal(decimal.RequireFromString("4.666")), On: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Count: 3, Note: &note},
		{ID: "b", Amount: decimal.Zero, Count: 0},
	}
	data, err := FromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "amount", "average", "on", "count", "note"}, data.Headers)
	assert.Equal(t, map[string]string{"id": "a", "amount": "350.50", "average": "4.67", "on": "2024-03-01", "count": "3", "note": "ok"}, data.Rows[0])
	assert.Equal(t, "", data.Rows[1]["average"])
	assert.Equal(t, "", data.Rows[1]["on"])
	assert.Equal(t, "", data.Rows[1]["note"])
}

func TestFromRowsSingleStructAndErrors(t *testing.T) {
	data, err := FromRows(&sampleRow{ID: "x"})
	require.NoError(t, err)
	assert.Len(t, data.Rows, 1)

	empty, err := FromRows([]sampleRow{})
	require.NoError(t, err)
	assert.Len(t, empty.Headers, 6)
	assert.Empty(t, empty.Rows)

	_, err = FromRows([]int{1})
	assert.Error(t, err)
	_, err = FromRows(nil)
	assert.Error(t, err)
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"title", "revenue"},
		Rows:    []map[string]string{{"title": "Go, Advanced", "revenue": "150.50"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "title,revenue\n\"Go, Advanced\",150.50\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVRenderWithByteOrderMark(t *testing.T) {
	data := Dataset{Headers: []string{"name"}, Rows: []map[string]string{{"name": "Ana Conceição"}}}

	out, err := NewCSVExporter(WithByteOrderMark(true)).Render(data)
	require.NoError(t, err)
	assert.Equal(t, "\xef\xbb\xbfname\nAna Conceição\n", string(out))

	out, err = NewCSVExporter(WithByteOrderMark(false)).Render(data)
	require.NoError(t, err)
	assert.Equal(t, "name\nAna Conceição\n", string(out))
}

func TestCSVRenderNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"title", "delta"},
		Rows: []map[string]string{
			{"title": "=HYPERLINK(\"http://x.test\")", "delta": "-12.50"},
			{"title": "@admin", "delta": "+3"},
			{"title": "Go - Basics", "delta": ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "title,delta\n\"'=HYPERLINK(\"\"http://x.test\"\")\",-12.50\n'@admin,+3\nGo - Basics,\n", string(out))
}

func TestPDFRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }

	out, err := exporter.Render(Dataset{
		Headers: []string{"a", "b", "c", "d", "e", "f", "g"},
		Rows:    []map[string]string{{"a": "a very long value that must be truncated to fit"}},
	}, "course-catalog")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = exporter.Render(Dataset{}, "x")
	assert.Error(t, err)
}
