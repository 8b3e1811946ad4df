package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMatches_SavedResults(t *testing.T) {
	span := core.TextSpan{
		SourceID:     "1962-10-22_Page3.pdf",
		PageDate:     core.NewDate(1962, 10, 22),
		PageSequence: 3,
		Text:         "alpha beta",
		BBox:         core.BBox{X0: 10, Y0: 20, X1: 110, Y1: 40.5},
		GlyphSize:    11,
	}
	saved := []core.Match{
		{Span: span, Term: "alpha", Kind: core.MatchExact, Similarity: 100, PageTerms: []string{"alpha", "beta"}},
		{Span: span, Term: "beta", Kind: core.MatchFuzzy, Similarity: 86, PageTerms: []string{"alpha", "beta"}},
	}
	var buf bytes.Buffer
	require.NoError(t, search.WriteCSV(&buf, saved))

	matches, err := ReadMatches(context.Background(), &buf, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, span, matches[0].Span)
	assert.Equal(t, "alpha", matches[0].Term)
	assert.Equal(t, core.MatchExact, matches[0].Kind)
	assert.Equal(t, []string{"alpha", "beta"}, matches[0].PageTerms)

	assert.Equal(t, "beta", matches[1].Term)
	assert.Equal(t, core.MatchFuzzy, matches[1].Kind)
	assert.Equal(t, 86, matches[1].Similarity)
	assert.Equal(t, 1, matches[1].SpanIndex)
}

func TestReadMatches_OptionalMatchColumns(t *testing.T) {
	data := "filename,text,bbx0,bby0,bbx1,bby1,similarity\n" +
		"a.pdf,rain,0,0,10,10,100\n" +
		"b.pdf,rein,0,0,10,10,75\n" +
		"c.pdf,rain,0,0,10,10,\n"

	matches, err := ReadMatches(context.Background(), strings.NewReader(data), nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, core.MatchExact, matches[0].Kind)
	assert.Equal(t, core.MatchFuzzy, matches[1].Kind)
	assert.Equal(t, 75, matches[1].Similarity)
	assert.Equal(t, 100, matches[2].Similarity)
	assert.Empty(t, matches[2].PageTerms)
}

func TestReadMatches_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrMissingColumn},
		{"missing bbox", "filename,text\na.pdf,x\n", ErrMissingColumn},
		{"bad similarity", "filename,text,bbx0,bby0,bbx1,bby1,similarity\na.pdf,x,0,0,1,1,high\n", ErrMalformedRow},
		{"similarity out of range", "filename,text,bbx0,bby0,bbx1,bby1,similarity\na.pdf,x,0,0,1,1,140\n", ErrMalformedRow},
		{"bad match type", "filename,text,bbx0,bby0,bbx1,bby1,match_type\na.pdf,x,0,0,1,1,semantic\n", ErrMalformedRow},
		{"inverted bbox", "filename,text,bbx0,bby0,bbx1,bby1\na.pdf,x,5,0,1,1\n", core.ErrInvalidTextSpan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMatches(context.Background(), strings.NewReader(tt.data), nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadMatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("filename,text,bbx0,bby0,bbx1,bby1\na.pdf,rain,0,0,10,10\n"), 0644))

	matches, err := ReadMatchesFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = ReadMatchesFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
