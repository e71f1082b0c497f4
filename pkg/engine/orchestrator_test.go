package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kafaat/sahool-intel/pkg/breaker"
	"github.com/kafaat/sahool-intel/pkg/cache"
)

// stubEngine is a controllable engine for orchestrator tests.
type stubEngine struct {
	kind    Kind
	payload Payload
	err     error
	block   chan struct{}
	calls   atomic.Int32
}

func (s *stubEngine) Kind() Kind { return s.kind }

func (s *stubEngine) Analyze(ctx context.Context, ac AnalysisContext) (Payload, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubEngine) Health() HealthStatus {
	return HealthStatus{State: HealthHealthy}
}

var testDate = time.Date(2026, time.April, 12, 9, 30, 0, 0, time.UTC)

func TestGenerateProducesCompleteSnapshot(t *testing.T) {
	o := NewOrchestrator()

	got := o.Generate(context.Background(), "field-42", testDate, "user-1")

	if got.FieldID != "field-42" {
		t.Errorf("field id: %s", got.FieldID)
	}
	if got.RequestID == "" {
		t.Error("expected a request id")
	}
	if !got.TargetDate.Equal(time.Date(2026, time.April, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("target date not truncated to the day: %s", got.TargetDate)
	}
	if got.Degraded {
		t.Error("healthy engines must not degrade the snapshot")
	}
	if got.Recommendations == nil || got.Tasks == nil || got.Alerts == nil {
		t.Error("derived lists must be non-nil")
	}
	if got.Risk.Score < 0 || got.Risk.Score > 10 {
		t.Errorf("risk score out of range: %f", got.Risk.Score)
	}
	if got.Yield.ExpectedTonsPerHectare <= 0 {
		t.Errorf("expected a positive yield forecast: %+v", got.Yield)
	}
	if got.Astral.MoonPhase == "" {
		t.Error("expected a moon phase")
	}
}

func TestGenerateSubstitutesFallbackOnFailure(t *testing.T) {
	failing := &stubEngine{kind: KindWeather, err: errors.New("upstream down")}
	o := NewOrchestrator(WithEngine(failing))

	got := o.Generate(context.Background(), "field-1", testDate, "")

	if !got.Degraded {
		t.Fatal("a failed engine must degrade the snapshot")
	}
	if got.Weather != FallbackFor(KindWeather).(WeatherSnapshot) {
		t.Fatalf("expected the documented weather fallback, got %+v", got.Weather)
	}
	// The other engines still contribute real data.
	if got.Soil.MoisturePct == 0 {
		t.Error("soil engine should still run")
	}
}

func TestGenerateAllEnginesFail(t *testing.T) {
	opts := make([]Option, 0, len(SourceKinds()))
	for _, kind := range SourceKinds() {
		opts = append(opts, WithEngine(&stubEngine{kind: kind, err: errors.New("down")}))
	}
	o := NewOrchestrator(opts...)

	got := o.Generate(context.Background(), "field-1", testDate, "")

	if !got.Degraded {
		t.Fatal("expected a degraded snapshot")
	}
	if got.Risk.Score != 0 {
		t.Errorf("fallback data must carry zero risk, got %f", got.Risk.Score)
	}
	if len(got.Recommendations) != 0 || len(got.Alerts) != 0 || len(got.Tasks) != 0 {
		t.Errorf("fallback data must derive nothing: %d recs, %d alerts, %d tasks",
			len(got.Recommendations), len(got.Alerts), len(got.Tasks))
	}
}

func TestGenerateNilPayloadFallsBack(t *testing.T) {
	// An engine that returns neither payload nor error is treated as failed.
	o := NewOrchestrator(WithEngine(&stubEngine{kind: KindSoil}))

	got := o.Generate(context.Background(), "field-1", testDate, "")
	if !got.Degraded {
		t.Fatal("a nil payload must degrade the snapshot")
	}
	if got.Soil != FallbackFor(KindSoil).(SoilAnalysis) {
		t.Fatalf("expected the soil fallback, got %+v", got.Soil)
	}
}

func TestGenerateServesFromCache(t *testing.T) {
	counting := &stubEngine{kind: KindWeather, payload: FallbackFor(KindWeather)}
	o := NewOrchestrator(
		WithEngine(counting),
		WithCache(cache.NewMemory[*UnifiedIntelligence](time.Minute)),
	)

	first := o.Generate(context.Background(), "field-1", testDate, "")
	second := o.Generate(context.Background(), "field-1", testDate, "")

	if first != second {
		t.Fatal("expected the cached snapshot on the second call")
	}
	if n := counting.calls.Load(); n != 1 {
		t.Fatalf("expected 1 engine call, got %d", n)
	}

	o.InvalidateCache("field-1", testDate)
	third := o.Generate(context.Background(), "field-1", testDate, "")
	if third == first {
		t.Fatal("invalidation must force a recomputation")
	}
	if n := counting.calls.Load(); n != 2 {
		t.Fatalf("expected 2 engine calls after invalidation, got %d", n)
	}
}

func TestGenerateOpensBreakerAfterRepeatedFailures(t *testing.T) {
	failing := &stubEngine{kind: KindWeather, err: errors.New("down")}
	o := NewOrchestrator(
		WithEngine(failing),
		WithBreakerSettings(breaker.Settings{FailureThreshold: 2}),
	)

	// No cache is configured, so every call exercises the engine.
	o.Generate(context.Background(), "field-1", testDate, "")
	o.Generate(context.Background(), "field-1", testDate, "")

	if got := o.BreakerState(KindWeather); got != breaker.StateOpen {
		t.Fatalf("expected open circuit, got %s", got)
	}

	// The open circuit fast-fails the engine while the snapshot stays total.
	before := failing.calls.Load()
	snapshot := o.Generate(context.Background(), "field-1", testDate, "")
	if !snapshot.Degraded {
		t.Fatal("expected a degraded snapshot behind the open circuit")
	}
	if failing.calls.Load() != before {
		t.Fatal("open circuit must not invoke the engine")
	}
}

func TestGenerateSharesConcurrentExecution(t *testing.T) {
	release := make(chan struct{})
	blocking := &stubEngine{kind: KindWeather, payload: FallbackFor(KindWeather), block: release}
	o := NewOrchestrator(WithEngine(blocking))

	var wg sync.WaitGroup
	var first, second *UnifiedIntelligence

	wg.Add(1)
	go func() {
		defer wg.Done()
		first = o.Generate(context.Background(), "field-1", testDate, "")
	}()

	// Wait until the first call is inside the blocking engine, then issue a
	// duplicate request for the same field and day.
	deadline := time.Now().Add(2 * time.Second)
	for blocking.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first call never reached the engine")
		}
		time.Sleep(time.Millisecond)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		second = o.Generate(context.Background(), "field-1", testDate, "")
	}()
	time.Sleep(10 * time.Millisecond)

	close(release)
	wg.Wait()

	if first != second {
		t.Fatal("concurrent requests for the same key must share one execution")
	}
	if n := blocking.calls.Load(); n != 1 {
		t.Fatalf("expected 1 engine call, got %d", n)
	}
}

func TestGenerateMissingEngineGetsFallback(t *testing.T) {
	o := NewOrchestrator()
	delete(o.engines, KindSoil)

	got := o.Generate(context.Background(), "field-1", testDate, "")

	if !got.Degraded {
		t.Fatal("a missing engine must degrade the snapshot")
	}
	if got.Soil != FallbackFor(KindSoil).(SoilAnalysis) {
		t.Fatalf("expected the soil fallback, got %+v", got.Soil)
	}
}

func TestGenerateCancelledCallerGetsFallbackPromptly(t *testing.T) {
	// The weather stub blocks until its context is cancelled, so only the
	// caller's cancellation can release it.
	blocking := &stubEngine{kind: KindWeather, payload: FallbackFor(KindWeather), block: make(chan struct{})}
	o := NewOrchestrator(WithEngine(blocking))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	var got *UnifiedIntelligence
	for i := 0; i < 3; i++ {
		got = o.Generate(ctx, "field-1", testDate, "")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancelled caller waited %s instead of degrading promptly", elapsed)
	}

	if got == nil {
		t.Fatal("expected a snapshot")
	}
	if !got.Degraded {
		t.Fatal("cancelled engine calls must degrade the snapshot")
	}
	if got.Weather != FallbackFor(KindWeather).(WeatherSnapshot) {
		t.Fatalf("expected the weather fallback, got %+v", got.Weather)
	}
	if got.Recommendations == nil || got.Tasks == nil || got.Alerts == nil {
		t.Fatal("derived lists must be non-nil even when cancelled")
	}

	// Cancellation is the caller's doing; the circuit stays closed.
	if state := o.BreakerState(KindWeather); state != breaker.StateClosed {
		t.Fatalf("cancellations must not open the circuit, got %s", state)
	}
}

func TestGetEngineHealthCoversAllKinds(t *testing.T) {
	o := NewOrchestrator()
	health := o.GetEngineHealth()
	for _, kind := range SourceKinds() {
		if _, ok := health[kind]; !ok {
			t.Errorf("missing health for %s", kind)
		}
	}
}
