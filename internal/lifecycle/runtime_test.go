package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordingComponent struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (c *recordingComponent) Start(context.Context) error {
	*c.events = append(*c.events, "start:"+c.name)
	return c.startErr
}

func (c *recordingComponent) Stop(context.Context) error {
	*c.events = append(*c.events, "stop:"+c.name)
	return c.stopErr
}

func TestRuntimeStopsInReverseOrderOnce(t *testing.T) {
	t.Parallel()

	var events []string
	rt := NewRuntime()
	rt.Register("state", &recordingComponent{name: "state", events: &events})
	rt.Register("journal", &recordingComponent{name: "journal", events: &events})
	rt.Register("nil", nil)
	rt.Register("metrics", &recordingComponent{name: "metrics", events: &events})

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := rt.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}
	if err := rt.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	want := []string{
		"start:state", "start:journal", "start:metrics",
		"stop:metrics", "stop:journal", "stop:state",
	}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected events: got %v want %v", events, want)
	}
}

func TestRuntimeStartFailureRollsBack(t *testing.T) {
	t.Parallel()

	var events []string
	boom := errors.New("boom")
	rt := NewRuntime()
	rt.Register("state", &recordingComponent{name: "state", events: &events})
	rt.Register("journal", &recordingComponent{name: "journal", events: &events, startErr: boom})
	rt.Register("metrics", &recordingComponent{name: "metrics", events: &events})

	err := rt.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected start error: %v", err)
	}

	want := []string{"start:state", "start:journal", "stop:state"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected events: got %v want %v", events, want)
	}
}

func TestRuntimeJoinsStopErrors(t *testing.T) {
	t.Parallel()

	var events []string
	first := errors.New("first")
	second := errors.New("second")
	rt := NewRuntime()
	rt.Register("a", &recordingComponent{name: "a", events: &events, stopErr: first})
	rt.Register("b", &recordingComponent{name: "b", events: &events, stopErr: second})

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	err := rt.Stop(context.Background())
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
}
