package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestOpenSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s := schema.Default()

	set, err := OpenSet(dir, s, "|")
	require.NoError(t, err)

	require.NoError(t, set.Sink(types.TypeFooter).WriteLine("F|20240101|1.0"))
	assert.Nil(t, set.Sink("Z"))
	require.NoError(t, set.Close())
	require.NoError(t, set.Close())

	for _, rt := range s.Types() {
		path := filepath.Join(dir, FileName(rt))
		lines := readLines(t, path)
		assert.Equal(t, s.Header(rt, "|"), lines[0], "header of %s", rt)
	}

	assert.Equal(t, []string{s.Header(types.TypeFooter, "|"), "F|20240101|1.0"},
		readLines(t, filepath.Join(dir, "F_records.txt")))
	assert.Equal(t, int64(1), set.Counts()[types.TypeFooter])
	assert.Equal(t, int64(0), set.Counts()[types.TypeHeader])
}

func TestOpenSet_Fails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenSet(file, schema.Default(), "|")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Buff_records.txt", FileName(types.TypeBuff))
	assert.Equal(t, "1_records.txt", FileName(types.TypeOrganization))
}

func TestExceptionLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), ExceptionLogName)

	log, err := OpenExceptionLog(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, log.Write(types.TypeExpenditure, "abc", fmt.Sprintf("B|%d", i)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, log.Write(types.TypeContribution, "", "A|x"))

	assert.Equal(t, int64(11), log.Count())
	require.NoError(t, log.Close())
	require.NoError(t, log.Close())
	assert.Error(t, log.Write(types.TypeContribution, "1", "A|y"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "Exception Log for Non-Numeric Amount Values\n\n"))
	assert.Contains(t, content, "Record B Exception (Amount: abc): B|7\n")
	assert.True(t, strings.HasSuffix(content, "Record A Exception (Amount: ): A|x\n"))
}

func TestExceptionLog_OpenFails(t *testing.T) {
	_, err := OpenExceptionLog(filepath.Join(t.TempDir(), "missing", ExceptionLogName))
	assert.Error(t, err)
}

func openFooterSink(t *testing.T) (*Set, *Sink) {
	t.Helper()
	set, err := OpenSet(t.TempDir(), schema.Default(), "|")
	require.NoError(t, err)
	return set, set.Sink(types.TypeFooter)
}

func TestBatchWriter_WritesEverythingOnClose(t *testing.T) {
	set, s := openFooterSink(t)

	w := NewBatchWriter(s, BatchOptions{BatchSize: 3, QueueCapacity: 2, FlushInterval: time.Hour})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Enqueue(ctx, fmt.Sprintf("line-%d", i)))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case <-w.Done():
	default:
		t.Fatal("writer goroutine still running after Close")
	}

	assert.Equal(t, int64(10), w.Written())
	assert.Equal(t, int64(4), w.Batches())

	require.NoError(t, set.Close())
	lines := readLines(t, s.Path())
	require.Len(t, lines, 11)

	// A single producer sees its own order preserved.
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("line-%d", i), lines[i+1])
	}
}

func TestBatchWriter_FlushesWhenIdle(t *testing.T) {
	set, s := openFooterSink(t)
	defer set.Close()

	w := NewBatchWriter(s, BatchOptions{BatchSize: 100, FlushInterval: 20 * time.Millisecond})
	require.NoError(t, w.Enqueue(context.Background(), "only"))

	assert.Eventually(t, func() bool {
		return w.Written() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
	assert.Equal(t, int64(1), w.Batches())
}

func TestBatchWriter_ConcurrentProducers(t *testing.T) {
	set, s := openFooterSink(t)

	w := NewBatchWriter(s, BatchOptions{BatchSize: 7, QueueCapacity: 1})

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, w.Enqueue(context.Background(), fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, w.Close())
	require.NoError(t, set.Close())

	lines := readLines(t, s.Path())[1:]
	require.Len(t, lines, 400)

	var want []string
	for p := 0; p < 8; p++ {
		for i := 0; i < 50; i++ {
			want = append(want, fmt.Sprintf("%d-%d", p, i))
		}
	}
	sort.Strings(want)
	sort.Strings(lines)
	assert.Equal(t, want, lines)
}

func TestBatchWriter_EnqueueHonoursContext(t *testing.T) {
	set, s := openFooterSink(t)
	defer set.Close()

	w := NewBatchWriter(s, BatchOptions{BatchSize: 1, QueueCapacity: 1})
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With a cancelled context, a send may still win the select when the
	// queue has room; keep enqueueing until the context is reported.
	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		err = w.Enqueue(ctx, "x")
	}
	assert.ErrorIs(t, err, context.Canceled)
}
