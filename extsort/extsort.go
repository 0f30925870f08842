// Package extsort implements spec §4.F/§4.G's external sort stage: an
// in-memory quicksort for inputs below a size threshold, and an external
// k-way merge (spill runs to a temp directory, merged via a min-heap)
// above it. No third-party generic spill-serialization library exists in
// the retrieval pack (the teacher's gogo/protobuf dependency only
// generalizes via codegen against fixed message types, not arbitrary
// caller record kinds), so run files are (de)serialized with the
// standard library's encoding/gob -- one of the stdlib-only choices
// DESIGN.md justifies. The min-heap itself uses
// container/heap for the same reason: no heap/priority-queue library
// appears anywhere in the pack.
package extsort

import (
	"bufio"
	"container/heap"
	"encoding/gob"
	"os"
	"sort"

	"github.com/nrminor/genotype/internal/gterr"
)

// Options configures a Sorter.
type Options struct {
	// InMemoryThreshold is the buffered record count at which the buffer
	// is sorted and spilled to disk; fewer records are sorted in memory.
	InMemoryThreshold int
	// TempDir is the directory run files are written to; defaults to
	// os.TempDir() scoped under a per-instance subdirectory.
	TempDir string
}

func (o *Options) fill() {
	if o.InMemoryThreshold <= 0 {
		o.InMemoryThreshold = 100_000
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
}

// Less reports whether a sorts before b under the configured projection
// (spec §4.F sort `by`).
type Less[T any] func(a, b T) bool

// Sorter accumulates records, spilling sorted runs to disk whenever the
// buffer reaches InMemoryThreshold, and produces a single globally sorted
// output via Finish.
type Sorter[T any] struct {
	opts    Options
	less    Less[T]
	buf     []T
	runs    []string
	dir     string
	spilled bool
}

// New constructs a Sorter using less as the total order.
func New[T any](less Less[T], opts Options) *Sorter[T] {
	opts.fill()
	return &Sorter[T]{opts: opts, less: less}
}

// Add appends a record to the sorter, spilling the in-memory buffer to a
// run file once it reaches InMemoryThreshold.
func (s *Sorter[T]) Add(item T) error {
	s.buf = append(s.buf, item)
	if len(s.buf) >= s.opts.InMemoryThreshold {
		return s.spill()
	}
	return nil
}

func (s *Sorter[T]) ensureDir() error {
	if s.dir != "" {
		return nil
	}
	dir, err := os.MkdirTemp(s.opts.TempDir, "genotype-extsort-*")
	if err != nil {
		return gterr.New(gterr.File, nil, "create temp dir: %v", err)
	}
	s.dir = dir
	return nil
}

func (s *Sorter[T]) spill() error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	s.spilled = true
	sort.Slice(s.buf, func(i, j int) bool { return s.less(s.buf[i], s.buf[j]) })

	f, err := os.CreateTemp(s.dir, "run-*.gob")
	if err != nil {
		return gterr.New(gterr.File, nil, "create run file: %v", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := gob.NewEncoder(w)
	for _, item := range s.buf {
		if err := enc.Encode(item); err != nil {
			return gterr.New(gterr.File, nil, "write run file: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		return gterr.New(gterr.File, nil, "flush run file: %v", err)
	}
	s.runs = append(s.runs, f.Name())
	s.buf = s.buf[:0]
	return nil
}

// Finish returns every added record in sorted order, either directly (if
// nothing was spilled) or via a k-way merge of the spilled runs, and
// deletes all run files and the temp directory before returning.
func (s *Sorter[T]) Finish() ([]T, error) {
	defer s.cleanup()

	if !s.spilled {
		sort.Slice(s.buf, func(i, j int) bool { return s.less(s.buf[i], s.buf[j]) })
		out := s.buf
		s.buf = nil
		return out, nil
	}
	if err := s.spill(); err != nil {
		return nil, err
	}
	return s.mergeRuns()
}

// Cleanup deletes any spilled run files without producing output;
// callers should invoke it on cancellation (spec §5: "external sort
// deletes spill files" on cancellation).
func (s *Sorter[T]) Cleanup() { s.cleanup() }

func (s *Sorter[T]) cleanup() {
	for _, path := range s.runs {
		_ = os.Remove(path)
	}
	s.runs = nil
	if s.dir != "" {
		_ = os.Remove(s.dir)
		s.dir = ""
	}
}

type mergeEntry[T any] struct {
	item   T
	runIdx int
}

type mergeHeap[T any] struct {
	entries []mergeEntry[T]
	less    Less[T]
}

func (h *mergeHeap[T]) Len() int           { return len(h.entries) }
func (h *mergeHeap[T]) Less(i, j int) bool { return h.less(h.entries[i].item, h.entries[j].item) }
func (h *mergeHeap[T]) Swap(i, j int)      { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }
func (h *mergeHeap[T]) Push(x interface{}) { h.entries = append(h.entries, x.(mergeEntry[T])) }
func (h *mergeHeap[T]) Pop() interface{} {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}

func (s *Sorter[T]) mergeRuns() ([]T, error) {
	decoders := make([]*gob.Decoder, len(s.runs))
	files := make([]*os.File, len(s.runs))
	for i, path := range s.runs {
		f, err := os.Open(path)
		if err != nil {
			return nil, gterr.New(gterr.File, nil, "open run file: %v", err)
		}
		files[i] = f
		decoders[i] = gob.NewDecoder(bufio.NewReader(f))
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	h := &mergeHeap[T]{less: s.less}
	heap.Init(h)
	for i, dec := range decoders {
		var item T
		if err := dec.Decode(&item); err == nil {
			heap.Push(h, mergeEntry[T]{item: item, runIdx: i})
		}
	}

	var out []T
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeEntry[T])
		out = append(out, top.item)
		var next T
		if err := decoders[top.runIdx].Decode(&next); err == nil {
			heap.Push(h, mergeEntry[T]{item: next, runIdx: top.runIdx})
		}
	}
	return out, nil
}
