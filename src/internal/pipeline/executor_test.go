package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperman/src/internal/chooser"
	"paperman/src/internal/opener"
	"paperman/src/internal/record"
	"paperman/src/internal/selection"
	"paperman/src/internal/store"
)

type fixedChooser struct {
	idx    []int
	err    error
	labels []string
}

func (f *fixedChooser) Choose(_ context.Context, labels []string) ([]int, error) {
	f.labels = labels
	return f.idx, f.err
}

type recordingOpener struct{ paths []string }

func (r *recordingOpener) Open(_ context.Context, paths []string) error {
	r.paths = append(r.paths, paths...)
	return nil
}

type fakeFetcher struct{ recs record.Store }

func (f fakeFetcher) Fetch(context.Context, string) (record.Store, error) { return f.recs, nil }

type harness struct {
	out     bytes.Buffer
	mem     *store.Memory
	exec    *Executor
	session *selection.Session
}

func newHarness(initial record.Store) *harness {
	h := &harness{mem: store.NewMemory(initial)}
	loaded, _ := h.mem.Load()
	h.session = selection.New(loaded)
	h.exec = &Executor{Out: &h.out, Persister: h.mem}
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	cmds, err := Parse(args)
	require.NoError(t, err)
	return h.exec.Run(context.Background(), h.session, cmds)
}

func (h *harness) saved(t *testing.T) record.Store {
	t.Helper()
	s, err := h.mem.Load()
	require.NoError(t, err)
	return s
}

func threeTitles() record.Store {
	return record.Store{
		"a": {"title": record.Text("Alpha")},
		"b": {"title": record.Text("Beta Garc{\\'\\i}a"), "file": record.Text("/papers/b.pdf")},
		"c": {"title": record.Text("Gamma"), "author": record.List("Doe, J", "Łukasz, K")},
	}
}

func TestScenarioImportThenAdd(t *testing.T) {
	h := newHarness(record.Store{})
	h.exec.Stdin = strings.NewReader(`@article{doe2020, title = "A Study"}`)
	require.NoError(t, h.run(t, "bibtex-stdin", "add"))

	want := record.Store{"doe2020": {"entry_type": record.Text("article"), "title": record.Text("A Study")}}
	assert.Empty(t, cmp.Diff(want, h.saved(t)))
	assert.Equal(t, 1, h.mem.Saves)
	assert.Equal(t, "Adding doe2020\n", h.out.String())
}

func TestScenarioByTitleNormalized(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "by", "title", "garcia", "list", "title"))
	assert.Equal(t, "Beta García\n", h.out.String())
	assert.Equal(t, []string{"b"}, h.session.Selection.Keys())
	assert.Zero(t, h.mem.Saves)
}

func TestByAuthorListAndRawField(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "by", "author", "lukasz", "print"))
	assert.Equal(t, []string{"c"}, h.session.Selection.Keys())

	h = newHarness(threeTitles())
	require.NoError(t, h.run(t, "by", "file", "B.PDF", "print"))
	assert.Empty(t, h.session.Selection.Keys(), "raw fields match case-sensitively")
}

func TestBibtexFileImport(t *testing.T) {
	h := newHarness(threeTitles())
	h.exec.ReadFile = func(path string) ([]byte, error) {
		require.Equal(t, "refs.bib", path)
		return []byte("@book{new1, title={New}}\n@misc{new2, title={Other}}"), nil
	}
	require.NoError(t, h.run(t, "bibtex", "refs.bib", "by", "title", "new", "add"))
	got := h.saved(t)
	assert.Equal(t, []string{"a", "b", "c", "new1"}, got.Keys())
}

func TestBibtexFileMissing(t *testing.T) {
	h := newHarness(threeTitles())
	h.exec.ReadFile = os.ReadFile
	err := h.run(t, "bibtex", "/does/not/exist.bib", "add")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, h.mem.Saves)
}

func TestBibtexParseErrorIsFatal(t *testing.T) {
	h := newHarness(threeTitles())
	h.exec.Stdin = strings.NewReader("@article{k, title={x")
	err := h.run(t, "bibtex-stdin", "add")
	require.Error(t, err)
	assert.Zero(t, h.mem.Saves)
}

func TestRemove(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "by", "title", "a", "remove"))
	// every title contains an "a"
	assert.Empty(t, h.saved(t))
	assert.Equal(t, "Removing a\nRemoving b\nRemoving c\n", h.out.String())
}

func TestUpdateWritesStoreForSelectedKeys(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "by", "title", "gamma", "update", "read", "yes"))
	got := h.saved(t)
	v, _ := got["c"].Text("read")
	assert.Equal(t, "yes", v)
	_, ok := got["a"].Get("read")
	assert.False(t, ok)
}

func TestPickUsesCleanLabels(t *testing.T) {
	h := newHarness(threeTitles())
	h.session.Selection["d"] = record.Record{"year": record.Text("2001")}
	ch := &fixedChooser{idx: []int{1, 3}}
	h.exec.Chooser = ch
	require.NoError(t, h.run(t, "pick", "print"))
	assert.Equal(t, []string{"Alpha", "Beta García", "Gamma", "d"}, ch.labels)
	assert.Equal(t, []string{"b", "d"}, h.session.Selection.Keys())
}

func TestPickCancelledIsFatal(t *testing.T) {
	h := newHarness(threeTitles())
	h.exec.Chooser = &fixedChooser{err: chooser.ErrCancelled}
	err := h.run(t, "pick", "remove")
	assert.ErrorIs(t, err, chooser.ErrCancelled)
	assert.Zero(t, h.mem.Saves)
}

func TestPickOutOfRange(t *testing.T) {
	h := newHarness(threeTitles())
	h.exec.Chooser = &fixedChooser{idx: []int{7}}
	require.Error(t, h.run(t, "pick", "print"))
}

func TestOpen(t *testing.T) {
	h := newHarness(threeTitles())
	op := &recordingOpener{}
	h.exec.Opener = op
	require.NoError(t, h.run(t, "by", "title", "beta", "open"))
	assert.Equal(t, []string{"/papers/b.pdf"}, op.paths)
	assert.Equal(t, "Opening /papers/b.pdf\n", h.out.String())
}

func TestOpenRequiresFileOnEveryEntry(t *testing.T) {
	h := newHarness(threeTitles())
	op := &recordingOpener{}
	h.exec.Opener = op
	err := h.run(t, "open")
	assert.ErrorIs(t, err, opener.ErrNoFile)
	assert.Empty(t, op.paths)
}

func TestDOIImport(t *testing.T) {
	h := newHarness(threeTitles())
	h.exec.Fetcher = fakeFetcher{recs: record.Store{"Doe_2023": {"entry_type": record.Text("article")}}}
	require.NoError(t, h.run(t, "doi", "10.1/x", "add"))
	assert.Contains(t, h.saved(t), "Doe_2023")
}

func TestPrintJSONAndYAML(t *testing.T) {
	h := newHarness(record.Store{"k": {"title": record.Text("T"), "tags": record.List("x", "y")}})
	require.NoError(t, h.run(t, "print"))
	assert.JSONEq(t, `{"k":{"tags":["x","y"],"title":"T"}}`, h.out.String())

	h = newHarness(record.Store{"k": {"title": record.Text("T")}})
	require.NoError(t, h.run(t, "print", "--yaml"))
	assert.Equal(t, "k:\n  title: T\n", h.out.String())
}

func TestListSkipsMissingAndJoinsLists(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "list", "author"))
	assert.Equal(t, "Doe, J and Łukasz, K\n", h.out.String())
}

func TestListTable(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "list", "file", "--keys"))
	out := h.out.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "/papers/b.pdf")
	assert.Equal(t, 3, strings.Count(out, "│ a ")+strings.Count(out, "│ b ")+strings.Count(out, "│ c "))
}

func TestExport(t *testing.T) {
	h := newHarness(record.Store{"k": {"entry_type": record.Text("book"), "title": record.Text("T")}})
	require.NoError(t, h.run(t, "export"))
	assert.Equal(t, "@book{k,\n    title = {T},\n}\n", h.out.String())
}

func TestChainWithoutTerminalIsNoop(t *testing.T) {
	h := newHarness(threeTitles())
	require.NoError(t, h.run(t, "by", "title", "alpha"))
	assert.Empty(t, h.out.String())
	assert.Zero(t, h.mem.Saves)
}

func TestCommitSaveFailure(t *testing.T) {
	h := newHarness(threeTitles())
	h.mem.Err = errors.New("read-only filesystem")
	err := h.run(t, "add")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "k", Label("k", record.Record{"title": record.Text("  {} ")}))
	assert.Equal(t, "k", Label("k", record.Record{"title": record.List("x")}))
	assert.Equal(t, "Ørsted", Label("k", record.Record{"title": record.Text(`{\O}rsted`)}))
}
