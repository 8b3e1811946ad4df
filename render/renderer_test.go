package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/pagesift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves in-memory documents and tracks their lifecycle.
type fakeStore struct {
	mu         sync.Mutex
	missing    map[string]bool
	failSave   map[string]bool
	watermarks bool
	opened     map[string]int
	closed     map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		missing:  make(map[string]bool),
		failSave: make(map[string]bool),
		opened:   make(map[string]int),
		closed:   make(map[string]int),
	}
}

func (s *fakeStore) Open(_ context.Context, sourceID string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[sourceID] {
		return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, sourceID)
	}
	s.opened[sourceID]++
	return &fakeDocument{store: s, sourceID: sourceID, failSave: s.failSave[sourceID]}, nil
}

func (s *fakeStore) CanWatermark() bool {
	return s.watermarks
}

func (s *fakeStore) closedCount(sourceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[sourceID]
}

type fakeDocument struct {
	store     *fakeStore
	sourceID  string
	failSave  bool
	lines     []string
	watermark string
}

func (d *fakeDocument) Highlight(bbox core.BBox, color Color) error {
	d.lines = append(d.lines, fmt.Sprintf("%v %v", bbox, color))
	return nil
}

func (d *fakeDocument) Watermark(label string) error {
	d.watermark = label
	return nil
}

func (d *fakeDocument) Save(_ context.Context, path string) (int, error) {
	if d.failSave {
		return 0, errors.New("disk full")
	}
	content := d.sourceID + "\n" + strings.Join(d.lines, "\n")
	if d.watermark != "" {
		content += "\nwatermark " + d.watermark
	}
	return 1, os.WriteFile(path, []byte(content), 0644)
}

func (d *fakeDocument) Close() error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.store.closed[d.sourceID]++
	return nil
}

// fakeAssembler writes the parts' contents one after another.
type fakeAssembler struct {
	parts []Part
}

func (a *fakeAssembler) Assemble(_ context.Context, parts []Part, outFile string) error {
	a.parts = parts
	var b strings.Builder
	for _, p := range parts {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return err
		}
		b.Write(data)
		b.WriteString("\n---\n")
	}
	return os.WriteFile(outFile, []byte(b.String()), 0644)
}

func testMatch(source string, similarity int, term string, x float64) core.Match {
	kind := core.MatchFuzzy
	if similarity == 100 {
		kind = core.MatchExact
	}
	return core.Match{
		Span: core.TextSpan{
			SourceID: source,
			Text:     term,
			BBox:     core.BBox{X0: x, Y0: 10, X1: x + 20, Y1: 20},
		},
		Term:       term,
		Kind:       kind,
		Similarity: similarity,
	}
}

func newTestRenderer(t *testing.T, store DocumentStore, assembler Assembler, opts ...Option) *Renderer {
	t.Helper()
	opts = append([]Option{WithScratchDir(t.TempDir())}, opts...)
	r, err := NewRenderer(store, assembler, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestNewRenderer(t *testing.T) {
	store := newFakeStore()
	assembler := &fakeAssembler{}

	_, err := NewRenderer(nil, assembler)
	assert.Equal(t, ErrDocumentStoreRequired, err)

	_, err = NewRenderer(store, nil)
	assert.Equal(t, ErrAssemblerRequired, err)

	_, err = NewRenderer(store, assembler, WithPoolSize(0))
	assert.Equal(t, ErrInvalidPoolSize, err)

	_, err = NewRenderer(store, assembler, WithOpenRate(0, 1))
	assert.Equal(t, ErrInvalidOpenRate, err)

	r, err := NewRenderer(store, assembler, WithWatermarks(true), WithLogger(nil))
	require.NoError(t, err)
	defer r.Release()
	assert.False(t, r.watermarks, "store without watermark support disables watermarks")
}

func TestRender_MergesInPlanOrder(t *testing.T) {
	store := newFakeStore()
	assembler := &fakeAssembler{}
	r := newTestRenderer(t, store, assembler, WithPoolSize(4), WithBookmarks(true))

	matches := []core.Match{
		testMatch("docs/c.pdf", 100, "rain", 0),
		testMatch("docs/a.pdf", 90, "rain", 0),
		testMatch("docs/c.pdf", 80, "rain", 40),
		testMatch("docs/b.pdf", 70, "rain", 0),
	}
	dest := filepath.Join(t.TempDir(), "out", "merged.pdf")

	report, err := r.Render(context.Background(), matches, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, report.Output)
	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 4, report.Highlights)
	assert.Empty(t, report.Skipped)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, assembler.parts, 3)
	var order, bookmarks []string
	for _, p := range assembler.parts {
		order = append(order, p.SourceID)
		bookmarks = append(bookmarks, p.Bookmark)
	}
	assert.Equal(t, []string{"docs/c.pdf", "docs/a.pdf", "docs/b.pdf"}, order)
	assert.Equal(t, []string{"c", "a", "b"}, bookmarks)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "docs/c.pdf"))

	for _, source := range order {
		assert.Equal(t, 1, store.closedCount(source), "document %s closed once", source)
	}
}

func TestRender_SkipsFailedDocuments(t *testing.T) {
	store := newFakeStore()
	store.missing["gone.pdf"] = true
	store.failSave["broken.pdf"] = true
	r := newTestRenderer(t, store, &fakeAssembler{})

	matches := []core.Match{
		testMatch("gone.pdf", 100, "rain", 0),
		testMatch("broken.pdf", 100, "rain", 0),
		testMatch("ok.pdf", 100, "rain", 0),
	}
	report, err := r.Render(context.Background(), matches, filepath.Join(t.TempDir(), "out.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	require.Len(t, report.Skipped, 2)

	assert.Equal(t, "gone.pdf", report.Skipped[0].SourceID)
	assert.ErrorIs(t, report.Skipped[0], ErrDocumentMissing)
	assert.Equal(t, "broken.pdf", report.Skipped[1].SourceID)
	assert.ErrorIs(t, report.Skipped[1], ErrDocumentRenderFailure)

	assert.Equal(t, 1, store.closedCount("broken.pdf"), "failed document is still closed")
}

func TestRender_NoDocumentsRendered(t *testing.T) {
	store := newFakeStore()
	store.missing["gone.pdf"] = true
	scratch := t.TempDir()
	r := newTestRenderer(t, store, &fakeAssembler{}, WithScratchDir(scratch))
	dest := filepath.Join(t.TempDir(), "out.pdf")

	report, err := r.Render(context.Background(), []core.Match{testMatch("gone.pdf", 100, "rain", 0)}, dest)
	assert.ErrorIs(t, err, ErrNoDocumentsRendered)
	assert.Len(t, report.Skipped, 1)
	assert.NoFileExists(t, dest)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory is removed")

	_, err = r.Render(context.Background(), nil, dest)
	assert.ErrorIs(t, err, ErrNoDocumentsRendered)
}

func TestRender_Watermarks(t *testing.T) {
	store := newFakeStore()
	store.watermarks = true
	r := newTestRenderer(t, store, &fakeAssembler{}, WithWatermarks(true))
	dest := filepath.Join(t.TempDir(), "out.pdf")

	_, err := r.Render(context.Background(), []core.Match{testMatch("scans/1962-10-22.pdf", 100, "rain", 0)}, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "watermark 1962-10-22")
}

func TestRender_Idempotent(t *testing.T) {
	matches := []core.Match{
		testMatch("b.pdf", 100, "rain", 0),
		testMatch("a.pdf", 85, "rain", 5),
		testMatch("b.pdf", 95, "rain", 30),
	}
	r := newTestRenderer(t, newFakeStore(), &fakeAssembler{}, WithPoolSize(3))

	first := filepath.Join(t.TempDir(), "first.pdf")
	second := filepath.Join(t.TempDir(), "second.pdf")
	_, err := r.Render(context.Background(), matches, first)
	require.NoError(t, err)
	_, err = r.Render(context.Background(), matches, second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRender_Cancelled(t *testing.T) {
	scratch := t.TempDir()
	r := newTestRenderer(t, newFakeStore(), &fakeAssembler{}, WithScratchDir(scratch))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, []core.Match{testMatch("a.pdf", 100, "rain", 0)}, filepath.Join(t.TempDir(), "out.pdf"))
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileSink(t *testing.T) {
	src := filepath.Join(t.TempDir(), "merged.pdf")
	require.NoError(t, os.WriteFile(src, []byte("pdf"), 0644))
	dest := filepath.Join(t.TempDir(), "nested", "dir", "out.pdf")

	require.NoError(t, FileSink{}.Persist(context.Background(), src, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))

	assert.ErrorIs(t, FileSink{}.Persist(context.Background(), src, dest), os.ErrNotExist)
}
