package storage

import (
	"testing"
	"time"

	"github.com/poiesic/pagesift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalTextSpan(t *testing.T) {
	date, err := core.ParseDate("1962-10-22")
	require.NoError(t, err)

	tests := []struct {
		name string
		span *core.TextSpan
	}{
		{
			name: "dated span",
			span: &core.TextSpan{
				Id:           core.ID(7),
				SourceID:     "1962-10-22_Page3.pdf",
				PageDate:     date,
				PageSequence: 3,
				Text:         "Missiles sighted near the coast",
				BBox:         core.BBox{X0: 12.5, Y0: 40, X1: 310.25, Y1: 52},
				GlyphSize:    11.5,
			},
		},
		{
			name: "undated span",
			span: &core.TextSpan{
				Id:           core.ID(8),
				SourceID:     "memo.pdf",
				PageSequence: 1,
				Text:         "unknown date",
				BBox:         core.BBox{X0: 1, Y0: 2, X1: 3, Y1: 4},
			},
		},
		{
			name: "empty page marker",
			span: &core.TextSpan{
				SourceID: "blank.pdf",
			},
		},
		{
			name: "pre-epoch date and unicode text",
			span: &core.TextSpan{
				Id:       core.ID(9),
				SourceID: "old.pdf",
				PageDate: core.NewDate(1899, time.December, 31),
				Text:     "naïve café",
				BBox:     core.BBox{X1: 1, Y1: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalTextSpan(tt.span)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalTextSpan(data)
			require.NoError(t, err)
			assert.Equal(t, tt.span.Id, decoded.Id)
			assert.Equal(t, tt.span.SourceID, decoded.SourceID)
			assert.Equal(t, tt.span.PageDate.Valid, decoded.PageDate.Valid)
			assert.True(t, tt.span.PageDate.Time.Equal(decoded.PageDate.Time))
			assert.Equal(t, tt.span.PageSequence, decoded.PageSequence)
			assert.Equal(t, tt.span.Text, decoded.Text)
			assert.Equal(t, tt.span.BBox, decoded.BBox)
			assert.Equal(t, tt.span.GlyphSize, decoded.GlyphSize)
		})
	}
}

func TestUnmarshalTextSpan_Invalid(t *testing.T) {
	full := MarshalTextSpan(&core.TextSpan{SourceID: "a.pdf", Text: "hello", BBox: core.BBox{X1: 1, Y1: 1}})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated in text", full[:5]},
		{"truncated in bbox", full[:len(full)-3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalTextSpan(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	cp := &Checkpoint{
		Source:      "/data/corpus.csv",
		Fingerprint: "abc123",
		Spans:       4096,
		UpdatedAt:   now,
	}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(cp))
	require.NoError(t, err)
	assert.Equal(t, cp.Source, decoded.Source)
	assert.Equal(t, cp.Fingerprint, decoded.Fingerprint)
	assert.Equal(t, cp.Spans, decoded.Spans)
	assert.True(t, cp.UpdatedAt.Equal(decoded.UpdatedAt))

	_, err = UnmarshalCheckpoint(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
