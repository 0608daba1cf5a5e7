package recording

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecording(t *testing.T, dir, name, id, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+"_"+id+".csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewSequence(t *testing.T) {
	tests := []struct {
		name    string
		frames  []Frame
		wantErr bool
		wantCh  []string
	}{
		{
			name:    "empty",
			frames:  nil,
			wantErr: true,
		},
		{
			name: "decreasing timestamps",
			frames: []Frame{
				{Timestamp: 1, State: map[string]float64{"x": 0}},
				{Timestamp: 0.5, State: map[string]float64{"x": 1}},
			},
			wantErr: true,
		},
		{
			name: "equal timestamps allowed",
			frames: []Frame{
				{Timestamp: 1, State: map[string]float64{"x": 0}},
				{Timestamp: 1, State: map[string]float64{"y": 1}},
			},
			wantCh: []string{"x", "y"},
		},
		{
			name: "channel union",
			frames: []Frame{
				{Timestamp: 0, State: map[string]float64{"b": 0, "a": 1}},
				{Timestamp: 0.1, State: map[string]float64{"c": 2}},
			},
			wantCh: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := NewSequence("test", tt.frames)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCh, seq.Channels())
			assert.Equal(t, len(tt.frames), seq.Len())
		})
	}
}

func TestSequenceIsImmutable(t *testing.T) {
	frames := []Frame{{Timestamp: 0, State: map[string]float64{"x": 1}}}
	seq, err := NewSequence("copy", frames)
	require.NoError(t, err)

	frames[0].State["x"] = 99
	assert.Equal(t, 1.0, seq.First().State["x"])

	ch := seq.Channels()
	ch[0] = "mutated"
	assert.Equal(t, []string{"x"}, seq.Channels())
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Frame
		wantErr error
	}{
		{
			name:    "valid",
			content: "timestamp,base_yaw.pos,wrist_roll.pos\n0.0,1.5,-2\n0.1,2,3.25\n",
			want: []Frame{
				{Timestamp: 0, State: map[string]float64{"base_yaw.pos": 1.5, "wrist_roll.pos": -2}},
				{Timestamp: 0.1, State: map[string]float64{"base_yaw.pos": 2, "wrist_roll.pos": 3.25}},
			},
		},
		{
			name:    "timestamp not first",
			content: "x, timestamp\n1, 0.5\n",
			want:    []Frame{{Timestamp: 0.5, State: map[string]float64{"x": 1}}},
		},
		{
			name:    "empty file",
			content: "",
			wantErr: ErrMalformed,
		},
		{
			name:    "header only",
			content: "timestamp,x\n",
			wantErr: ErrMalformed,
		},
		{
			name:    "missing timestamp column",
			content: "x,y\n1,2\n",
			wantErr: ErrMalformed,
		},
		{
			name:    "non numeric value",
			content: "timestamp,x\n0,abc\n",
			wantErr: ErrMalformed,
		},
		{
			name:    "non numeric timestamp",
			content: "timestamp,x\nnow,1\n",
			wantErr: ErrMalformed,
		},
		{
			name:    "short row",
			content: "timestamp,x,y\n0,1\n",
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := ParseCSV(strings.NewReader(tt.content))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, frames)
		})
	}
}

func TestCSVStore(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "nod", "lelamp", "timestamp,x\n0,1\n0.1,2\n")
	writeRecording(t, dir, "curious", "lelamp", "timestamp,x\n0,1\n")
	writeRecording(t, dir, "nod", "other", "timestamp,x\n0,1\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub_lelamp.csv"), 0o755))

	store := NewCSVStore(dir)

	names, err := store.List("lelamp")
	require.NoError(t, err)
	assert.Equal(t, []string{"curious", "nod"}, names)

	frames, err := store.Read("nod", "lelamp")
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	_, err = store.Read("missing", "lelamp")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Read("../nod", "lelamp")
	assert.ErrorIs(t, err, ErrNotFound)

	info, err := store.Info("nod", "lelamp")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Rows)
	assert.Equal(t, "nod_lelamp.csv", info.File)
}

func TestCSVStoreListMissingDir(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "nope"))
	names, err := store.List("lelamp")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCSVWriterRoundTrip(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "recordings"))

	w, err := store.Create("wave", "lelamp")
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(Frame{Timestamp: 0, State: map[string]float64{"b": 2, "a": 1}}))
	require.NoError(t, w.WriteFrame(Frame{Timestamp: 0.033, State: map[string]float64{"b": 3, "a": 1.5}}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(store.Path("wave", "lelamp"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "timestamp,a,b\n"))

	frames, err := store.Read("wave", "lelamp")
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 1.5, frames[1].State["a"])
	assert.Equal(t, 0.033, frames[1].Timestamp)
}

type countingStore struct {
	Store
	mu    sync.Mutex
	reads int
}

func (c *countingStore) Read(name, id string) ([]Frame, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Store.Read(name, id)
}

func TestLoaderCaches(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put("idle", "lelamp", []Frame{{Timestamp: 0, State: map[string]float64{"x": 0}}})
	store := &countingStore{Store: mem}
	loader := NewLoader(store, "lelamp")

	first, err := loader.Load("idle")
	require.NoError(t, err)
	second, err := loader.Load("idle")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, store.reads)
	assert.True(t, loader.Cached("idle"))

	loader.Invalidate("idle")
	assert.False(t, loader.Cached("idle"))
	_, err = loader.Load("idle")
	require.NoError(t, err)
	assert.Equal(t, 2, store.reads)

	loader.Purge()
	assert.False(t, loader.Cached("idle"))
}

func TestLoaderErrors(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put("bad", "lelamp", []Frame{
		{Timestamp: 1, State: map[string]float64{"x": 0}},
		{Timestamp: 0, State: map[string]float64{"x": 0}},
	})
	loader := NewLoader(mem, "lelamp")

	_, err := loader.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = loader.Load("bad")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, loader.Cached("bad"))

	names, err := loader.Available()
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, names)
}

func TestWatcherInvalidatesCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping watcher test in short mode")
	}

	dir := t.TempDir()
	path := writeRecording(t, dir, "nod", "lelamp", "timestamp,x\n0,1\n")

	loader := NewLoader(NewCSVStore(dir), "lelamp")
	seq, err := loader.Load("nod")
	require.NoError(t, err)
	assert.Equal(t, 1.0, seq.First().State["x"])

	w, err := NewWatcher(dir, loader)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(path, []byte("timestamp,x\n0,7\n"), 0o644))

	require.Eventually(t, func() bool { return !loader.Cached("nod") }, 2*time.Second, 10*time.Millisecond)

	seq, err = loader.Load("nod")
	require.NoError(t, err)
	assert.Equal(t, 7.0, seq.First().State["x"])
}

type fakeObserver struct {
	mu    sync.Mutex
	n     int
	fails bool
}

func (f *fakeObserver) Observe() (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails {
		return nil, errors.New("bus timeout")
	}
	f.n++
	return map[string]float64{"x": float64(f.n)}, nil
}

type memorySink struct {
	frames []Frame
}

func (m *memorySink) WriteFrame(f Frame) error {
	m.frames = append(m.frames, f)
	return nil
}

func TestRecorder(t *testing.T) {
	sink := &memorySink{}
	rec, err := NewRecorder(&fakeObserver{}, sink, 100)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	n, err := rec.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, len(sink.frames))
	assert.GreaterOrEqual(t, n, 3)

	_, err = NewSequence("recorded", sink.frames)
	assert.NoError(t, err)
}

func TestRecorderTimestampsFollowFrameSlots(t *testing.T) {
	sink := &memorySink{}
	rec, err := NewRecorder(&fakeObserver{}, sink, 100)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	n, err := rec.Run(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 2)

	assert.Equal(t, 0.0, sink.frames[0].Timestamp)
	for i, f := range sink.frames {
		assert.InDelta(t, float64(i)*0.01, f.Timestamp, 1e-9, "frame %d", i)
	}
}

func TestRecorderObserveError(t *testing.T) {
	rec, err := NewRecorder(&fakeObserver{fails: true}, &memorySink{}, 30)
	require.NoError(t, err)

	_, err = rec.Run(context.Background())
	assert.Error(t, err)

	_, err = NewRecorder(&fakeObserver{}, &memorySink{}, 0)
	assert.Error(t, err)
}
