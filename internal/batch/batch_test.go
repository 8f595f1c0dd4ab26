package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

type fakeProc struct {
	mu       sync.Mutex
	seen     map[string]string // path -> request id
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeProc) ProcessFile(ctx context.Context, kind constants.DocumentKind, path, lang string) (pipeline.Result, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.seen[path] = common.RequestIDFromContext(ctx)
	f.mu.Unlock()

	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "bad"):
		return pipeline.Result{}, common.NewAppError(common.CodeInvalidInput, "unsupported", errors.New("x"))
	case strings.HasPrefix(base, "blank"):
		rec := record.Placeholder(kind, "Sin datos suficientes", "")
		return pipeline.Result{Kind: kind, Record: rec, Err: common.NewAppError(common.CodeNoTextExtracted, "empty", common.ErrNoTextExtracted)}, nil
	case strings.HasPrefix(base, "panic"):
		panic("boom")
	}
	return pipeline.Result{Kind: kind, Record: record.Normalize(kind, map[string]any{"nombre": base})}, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.pdf", "a.PNG", "notes.txt", ".hidden.pdf", ".cache/c.pdf", "sub/d.jpeg")

	paths, stats, err := Collect(dir, true)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub", "d.jpeg"),
	}, paths)
	require.EqualValues(t, 3, stats.Matched)

	_, _, err = Collect("  ", true)
	require.Error(t, err)
}

func TestRunDirectory_Stats(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "ok1.pdf", "ok2.png", "bad.pdf", "blank.jpg", "panic.png")

	proc := &fakeProc{seen: map[string]string{}}
	results, stats, err := NewRunner(proc, nil, WithWorkers(2)).RunDirectory(context.Background(), constants.KindMaterial, dir)
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.EqualValues(t, 2, stats.Succeeded)
	require.EqualValues(t, 1, stats.Degraded)
	require.EqualValues(t, 2, stats.Failed)

	// input order is kept
	require.Equal(t, filepath.Join(dir, "bad.pdf"), results[0].Path)
	require.NotEmpty(t, results[0].Err)

	ids := map[string]bool{}
	for _, rid := range proc.seen {
		require.NotEmpty(t, rid)
		ids[rid] = true
	}
	require.Len(t, ids, len(proc.seen), "every file gets its own request id")
	require.LessOrEqual(t, proc.peak.Load(), int32(2))
}

func TestRunFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proc := &fakeProc{seen: map[string]string{}}
	results := NewRunner(proc, nil, WithWorkers(1)).RunFiles(ctx, constants.KindTool, []string{"a.pdf", "b.pdf", "c.pdf"})
	require.Len(t, results, 3)
	for _, r := range results {
		require.Equal(t, context.Canceled.Error(), r.Err)
	}
	require.Empty(t, proc.seen)
}
