package ris

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "\ufeffTY  - JOUR\r\n" +
	"AU  - Doe, Jane\r\n" +
	"AU  - Roe, Richard\r\n" +
	"T1  - Effects of X on Y\r\n" +
	"  in laboratory rats\r\n" +
	"JO  - Journal of Examples\r\n" +
	"PY  - 2019/03/01\r\n" +
	"DO  - https://doi.org/10.1000/ABC\r\n" +
	"ER  - \r\n" +
	"\r\n" +
	"TY  - BOOK\n" +
	"TI  - A Book Without DOI\n" +
	"ER  -\n"

func TestParseRecords(t *testing.T) {
	records, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "JOUR", first.Get("TY"))
	assert.Equal(t, []string{"Doe, Jane", "Roe, Richard"}, first.Fields["AU"])
	assert.Equal(t, "Effects of X on Y in laboratory rats", first.Get("T1"))
	assert.Equal(t, "", first.Get("TI"))
}

func TestReadCandidates(t *testing.T) {
	candidates, err := ReadCandidates(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	c := candidates[0]
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, "https://doi.org/10.1000/ABC", c.DOI)
	assert.Equal(t, "Effects of X on Y in laboratory rats", c.Title)
	assert.Equal(t, "2019", c.Year)
	assert.Equal(t, "Journal of Examples", c.Journal)
	assert.Len(t, c.Authors, 2)
	assert.Empty(t, c.DOINorm)

	book := candidates[1]
	assert.Equal(t, 1, book.Index)
	assert.Equal(t, "", book.DOI)
	assert.Equal(t, "A Book Without DOI", book.Title, "TI is used when T1 is absent")
}

func TestParseMissingFieldsIsNotAnError(t *testing.T) {
	candidates, err := ReadCandidates(strings.NewReader("TY  - GEN\nER  - \n"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Empty(t, candidates[0].DOI)
	assert.Empty(t, candidates[0].Title)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "tag outside record", input: "TI  - lonely\n", line: 1},
		{name: "ER without TY", input: "ER  - \n", line: 1},
		{name: "nested TY", input: "TY  - JOUR\nTY  - JOUR\nER  - \n", line: 2},
		{name: "unterminated record", input: "TY  - JOUR\nTI  - Something\n", line: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.Is(err, ErrMalformed))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = Parse(strings.NewReader("just some text\nand more\n"))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestParseSkipsVendorHeader(t *testing.T) {
	input := "Provider: JSTOR http://www.jstor.org\r\n" +
		"Database: JSTOR\r\n" +
		"Content: text/plain; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		"TY  - JOUR\r\n" +
		"TI  - Effects of X on Y\r\n" +
		"ER  - \r\n" +
		"Exported on 2024-05-01\r\n" +
		"TY  - JOUR\r\n" +
		"TI  - Second Record\r\n" +
		"ER  - \r\n"

	records, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Effects of X on Y", records[0].Get("TI"))
	assert.Equal(t, "Second Record", records[1].Get("TI"), "text between records is not a continuation")
}
