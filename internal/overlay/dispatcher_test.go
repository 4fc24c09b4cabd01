package overlay

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDispatcherOrder(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.On(EventLogLine, "a", func(Event) { calls = append(calls, "a") })
	d.On(EventLogLine, "b", func(Event) { calls = append(calls, "b") })
	d.On(EventPartyChanged, "c", func(Event) { calls = append(calls, "c") })

	if !d.Dispatch(LogLineEvent(Fields{"21"}, "")) {
		t.Fatal("expected handlers for LogLine")
	}
	if diff := cmp.Diff([]string{"a", "b"}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcherReplaceSameName(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.On(EventLogLine, "spellbook", func(Event) { calls = append(calls, "old") })
	d.On(EventLogLine, "bestiary", func(Event) { calls = append(calls, "bestiary") })
	d.On(EventLogLine, "spellbook", func(Event) { calls = append(calls, "new") })

	if got := d.Len(EventLogLine); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	d.Dispatch(LogLineEvent(nil, ""))
	if diff := cmp.Diff([]string{"new", "bestiary"}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
