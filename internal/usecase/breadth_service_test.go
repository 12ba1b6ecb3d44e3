package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu      sync.Mutex
	running int32
	overlap bool
	runs    int32
	err     error
	delay   time.Duration
}

func (r *stubRunner) Run(ctx context.Context) (*models.Report, error) {
	if atomic.AddInt32(&r.running, 1) > 1 {
		r.mu.Lock()
		r.overlap = true
		r.mu.Unlock()
	}
	defer atomic.AddInt32(&r.running, -1)
	n := atomic.AddInt32(&r.runs, 1)
	time.Sleep(r.delay)
	if r.err != nil {
		return nil, r.err
	}
	return &models.Report{RunID: string(rune('a' + n - 1))}, nil
}

type recordingSink struct {
	name string
	err  error
	got  []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, r *models.Report) error {
	s.got = append(s.got, r.RunID)
	return s.err
}

func TestServiceRefreshReplacesLatest(t *testing.T) {
	runner := &stubRunner{}
	failing := &recordingSink{name: "broken", err: errors.New("down")}
	ok := &recordingSink{name: "ok"}
	svc := NewBreadthService(runner, []drepo.ReportSink{failing, ok}, time.Second, 0, nil)

	_, err := svc.Latest()
	assert.ErrorIs(t, err, ErrNoReport)

	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	second, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)

	assert.Equal(t, []string{"a", "b"}, failing.got)
	assert.Equal(t, []string{"a", "b"}, ok.got)
}

func TestServiceKeepsPreviousReportOnFailure(t *testing.T) {
	runner := &stubRunner{}
	svc := NewBreadthService(runner, nil, time.Second, 0, nil)

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	runner.err = models.ErrNoData
	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.ErrorIs(t, svc.LastError(), models.ErrNoData)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, "a", latest.RunID)
}

func TestServiceSerialisesRefreshes(t *testing.T) {
	runner := &stubRunner{delay: 10 * time.Millisecond}
	svc := NewBreadthService(runner, nil, time.Second, 0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Refresh(context.Background())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 5, atomic.LoadInt32(&runner.runs))
	assert.False(t, runner.overlap)
}

func TestServiceStartRefreshesUntilCancelled(t *testing.T) {
	runner := &stubRunner{}
	svc := NewBreadthService(runner, nil, time.Second, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runner.runs) >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
