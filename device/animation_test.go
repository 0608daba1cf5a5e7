package device

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamp/recording"
)

func newAnimation(t *testing.T, driver *fakeDriver, j *journal, transition time.Duration, recordings map[string][]recording.Frame) *AnimationService {
	t.Helper()
	opts := []Option{WithFrameRate(100)}
	if j != nil {
		opts = append(opts, WithPlaybackListener(j.listener()))
	}
	svc := NewAnimationService(testActuator, driver, newTestLoader(recordings), AnimationConfig{
		IdleRecording:      "idle",
		TransitionDuration: transition,
	}, opts...)
	t.Cleanup(func() { svc.Stop(time.Second) })
	return svc
}

func TestAnimationStartsIdleFromObservedState(t *testing.T) {
	driver := &fakeDriver{observed: State{"x": 50}}
	j := &journal{}
	svc := newAnimation(t, driver, j, 50*time.Millisecond, map[string][]recording.Frame{
		"idle": ramp(3, 0),
	})

	require.NoError(t, svc.Start())
	require.Eventually(t, func() bool { return j.index("started:idle") >= 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return driver.count() >= 8 }, time.Second, 5*time.Millisecond)

	sent := driver.sent()
	// 5 blend frames from the observed 50 down to the first idle frame
	assert.Equal(t, 50.0, sent[0]["x"])
	assert.InDelta(t, 40.0, sent[1]["x"], 1e-9)
	assert.Equal(t, []float64{0, 1, 2}, []float64{sent[5]["x"], sent[6]["x"], sent[7]["x"]})
}

func TestAnimationIdleLoopsWithoutBlend(t *testing.T) {
	driver := &fakeDriver{}
	j := &journal{}
	svc := newAnimation(t, driver, j, 50*time.Millisecond, map[string][]recording.Frame{
		"idle": ramp(3, 0),
	})

	require.NoError(t, svc.Start())
	require.Eventually(t, func() bool { return svc.Status().Counters.Finished >= 3 }, 2*time.Second, 5*time.Millisecond)

	sent := driver.sent()
	require.GreaterOrEqual(t, len(sent), 9)
	// no observed state, so no blend even on the first play
	for i := 0; i < 9; i++ {
		assert.Equal(t, float64(i%3), sent[i]["x"], "command %d", i)
	}
	assert.Equal(t, int64(0), svc.Status().Counters.IdleResumes)
}

func TestAnimationResumesIdleOnce(t *testing.T) {
	j := &journal{}
	driver := &fakeDriver{journal: j}
	svc := newAnimation(t, driver, j, 30*time.Millisecond, map[string][]recording.Frame{
		"idle": ramp(10, 0),
		"nod":  ramp(5, 100),
	})

	require.NoError(t, svc.Start())
	require.True(t, svc.Dispatch(EventPlay, "nod"))

	require.Eventually(t, func() bool { return j.index("finished:nod") >= 0 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return svc.Status().Counters.Finished >= 3 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(1), svc.Status().Counters.IdleResumes)

	entries := j.snapshot()
	finished := j.index("finished:nod")
	require.Greater(t, len(entries), finished+1)
	var next string
	for _, e := range entries[finished+1:] {
		if !strings.HasPrefix(e, "cmd:") {
			next = e
			break
		}
	}
	assert.Equal(t, "started:idle", next)

	// the resume blends from nod's last frame (104) towards idle's first (0)
	resumeStart := -1
	for i, e := range entries[finished+1:] {
		if e == "started:idle" {
			resumeStart = finished + 1 + i
			break
		}
	}
	require.GreaterOrEqual(t, resumeStart, 0)
	require.Greater(t, len(entries), resumeStart+2)
	assert.Equal(t, "cmd:104", entries[resumeStart+1])
	second, err := strconv.ParseFloat(strings.TrimPrefix(entries[resumeStart+2], "cmd:"), 64)
	require.NoError(t, err)
	assert.InDelta(t, 104.0*2/3, second, 1e-9)
}

func TestAnimationSupersededPlaybackDoesNotResume(t *testing.T) {
	j := &journal{}
	driver := &fakeDriver{journal: j}
	svc := newAnimation(t, driver, j, 300*time.Millisecond, map[string][]recording.Frame{
		"idle": ramp(5, 0),
		"A":    ramp(100, 1000),
		"B":    ramp(100, 2000),
	})

	require.NoError(t, svc.Start())
	require.True(t, svc.Dispatch(EventPlay, "A"))
	require.Eventually(t, func() bool { return j.index("started:A") >= 0 }, time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.True(t, svc.Dispatch(EventPlay, "B"))
	require.Eventually(t, func() bool { return j.index("started:B") >= 0 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	cancelled := j.index("cancelled:A")
	startedB := j.index("started:B")
	require.GreaterOrEqual(t, cancelled, 0)
	assert.Equal(t, cancelled+1, startedB, "A must exit before B begins")

	entries := j.snapshot()
	require.Greater(t, len(entries), startedB+1)
	lastA := entries[cancelled-1]
	firstB := entries[startedB+1]
	assert.True(t, strings.HasPrefix(lastA, "cmd:"), lastA)
	assert.Equal(t, lastA, firstB, "blend starts from the last commanded state")

	assert.Equal(t, -1, j.index("finished:A"))
	assert.Equal(t, int64(0), svc.Status().Counters.IdleResumes)
}

func TestAnimationDispatchIdleByNameRestarts(t *testing.T) {
	j := &journal{}
	svc := newAnimation(t, &fakeDriver{}, j, 20*time.Millisecond, map[string][]recording.Frame{
		"idle": ramp(50, 0),
	})

	require.NoError(t, svc.Start())
	require.Eventually(t, func() bool { return j.index("started:idle") >= 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	require.True(t, svc.Dispatch(EventPlay, "idle"))
	require.Eventually(t, func() bool { return j.index("cancelled:idle") >= 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return svc.Status().Counters.Started == 2 }, time.Second, 5*time.Millisecond)
}

func TestAnimationWithoutIdleRecording(t *testing.T) {
	driver := &fakeDriver{}
	j := &journal{}
	svc := newAnimation(t, driver, j, 0, map[string][]recording.Frame{
		"nod": ramp(3, 0),
	})

	require.NoError(t, svc.Start())
	require.True(t, svc.Dispatch(EventPlay, "nod"))
	require.Eventually(t, func() bool { return j.index("finished:nod") >= 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 3, driver.count())
	assert.Equal(t, int64(0), svc.Status().Counters.IdleResumes)

	names, err := svc.Recordings()
	require.NoError(t, err)
	assert.Equal(t, []string{"nod"}, names)
}
