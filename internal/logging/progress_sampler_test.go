package logging

import (
	"sync"
	"testing"
)

func TestNewProgressSamplerDefaults(t *testing.T) {
	if s := NewProgressSampler(0); s.bucketSize != 5 || s.lastBucket != -1 {
		t.Fatalf("unexpected defaults: size=%v bucket=%d", s.bucketSize, s.lastBucket)
	}
	if s := NewProgressSampler(25); s.bucketSize != 25 {
		t.Fatalf("bucketSize = %v, want 25", s.bucketSize)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "annotate") {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		stage   string
		want    bool
	}{
		{0, "annotate", true},
		{10, "annotate", false},
		{25, "annotate", true},
		{40, "annotate", false},
		{99, "annotate", true},
		{100, "annotate", true},
		{150, "annotate", false},
		{5, "render", true},
		{-1, "render", false},
		{-1, "done", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.stage); got != step.want {
			t.Fatalf("step %d (%v%% %s): got %v want %v", i, step.percent, step.stage, got, step.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, "annotate") {
		t.Fatal("expected log after reset")
	}
}

func TestProgressSamplerConcurrent(t *testing.T) {
	s := NewProgressSampler(10)
	var wg sync.WaitGroup
	emitted := make(chan struct{}, 200)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			if s.ShouldLog(float64(p), "annotate") {
				emitted <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(emitted)
	count := 0
	for range emitted {
		count++
	}
	if count == 0 || count > 21 {
		t.Fatalf("expected between 1 and 21 emissions, got %d", count)
	}
}
