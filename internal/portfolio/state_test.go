package portfolio

import "testing"

func TestNext(t *testing.T) {
	cases := []struct {
		from State
		ev   Event
		want State
	}{
		{StateDraft, EventSave, StateDraft},
		{StatePublished, EventSave, StateDraft},
		{StateDraft, EventPublish, StatePublished},
		{StatePublished, EventPublish, StatePublished},
		{StatePublished, EventUnpublish, StateDraft},
		{StateDraft, EventUnpublish, StateDraft},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.ev)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", tc.from, tc.ev, err)
		}
		if got != tc.want {
			t.Fatalf("Next(%s, %s) = %s, want %s", tc.from, tc.ev, got, tc.want)
		}
	}
}

func TestNextRejectsUnknownInput(t *testing.T) {
	if _, err := Next("archived", EventSave); err == nil {
		t.Fatal("expected error for unknown state")
	}
	if _, err := Next(StateDraft, "delete"); err == nil {
		t.Fatal("expected error for unknown event")
	}
}
