package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestRecorderAccumulatesAcrossCalls(t *testing.T) {
	r := NewRecorder(nil)
	r.Record(StageParsing, 10*time.Millisecond)
	r.Record(StageParsing, 5*time.Millisecond)
	rep := r.Finalize()
	if got := rep.Durations[StageParsing]; got != 15*time.Millisecond {
		t.Errorf("expected accumulated 15ms, got %v", got)
	}
}

func TestFinalizeFlagsBreaches(t *testing.T) {
	bounds := Bounds{StageCandidateGen: 1 * time.Millisecond}
	r := NewRecorder(bounds)
	r.Record(StageCandidateGen, 5*time.Millisecond)
	rep := r.Finalize()
	if rep.WithinBounds() {
		t.Fatalf("expected a breach to be recorded")
	}
	if len(rep.Breaches) != 1 || rep.Breaches[0].Stage != StageCandidateGen {
		t.Errorf("unexpected breaches: %+v", rep.Breaches)
	}
}

func TestFinalizeIgnoresUnboundedStages(t *testing.T) {
	r := NewRecorder(Bounds{})
	r.Record(StageDiscovery, time.Hour)
	rep := r.Finalize()
	if !rep.WithinBounds() {
		t.Errorf("stage with no configured bound should never breach")
	}
}

func TestTimedRecordsDurationAndPropagatesError(t *testing.T) {
	r := NewRecorder(nil)
	sentinel := errors.New("boom")
	err := r.Timed(StageExtraction, func() error {
		time.Sleep(time.Millisecond)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error to propagate, got %v", err)
	}
	rep := r.Finalize()
	if rep.Durations[StageExtraction] <= 0 {
		t.Errorf("expected a positive recorded duration, got %v", rep.Durations[StageExtraction])
	}
}

func TestTotalSumsAllStages(t *testing.T) {
	r := NewRecorder(nil)
	r.Record(StageParsing, 2*time.Millisecond)
	r.Record(StageExtraction, 3*time.Millisecond)
	rep := r.Finalize()
	if got := rep.Total(); got != 5*time.Millisecond {
		t.Errorf("expected total 5ms, got %v", got)
	}
}
