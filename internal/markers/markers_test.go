package markers

import "testing"

var (
	E = Empty()
	F = Filled(1000)
)

func TestAssignNearestEmpty(t *testing.T) {
	tests := []struct {
		name          string
		slots         []Slot
		ref           int
		preferForward bool
		wantRow       int
		wantOK        bool
	}{
		{
			name:          "reference row is itself empty",
			slots:         []Slot{F, E, E, F, E},
			ref:           1,
			preferForward: true,
			wantRow:       1,
			wantOK:        true,
		},
		{
			name:          "no reference picks first empty",
			slots:         []Slot{E, F, E},
			ref:           -1,
			preferForward: true,
			wantRow:       0,
			wantOK:        true,
		},
		{
			name:          "out of range reference picks first empty",
			slots:         []Slot{F, E, E},
			ref:           7,
			preferForward: true,
			wantRow:       1,
			wantOK:        true,
		},
		{
			name:          "tie prefers forward",
			slots:         []Slot{E, F, E},
			ref:           1,
			preferForward: true,
			wantRow:       2,
			wantOK:        true,
		},
		{
			name:          "tie prefers backward when disabled",
			slots:         []Slot{E, F, E},
			ref:           1,
			preferForward: false,
			wantRow:       0,
			wantOK:        true,
		},
		{
			name:          "closer row wins over forward preference",
			slots:         []Slot{F, E, F, F, F, E},
			ref:           2,
			preferForward: true,
			wantRow:       1,
			wantOK:        true,
		},
		{
			name:          "all filled",
			slots:         []Slot{F, F},
			ref:           0,
			preferForward: true,
			wantOK:        false,
		},
		{
			name:   "no slots",
			slots:  nil,
			ref:    -1,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &Engine{PreferForward: tt.preferForward}
			got, ok := engine.AssignNearestEmpty(tt.slots, 65432, tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Row != tt.wantRow {
				t.Errorf("row = %d, want %d", got.Row, tt.wantRow)
			}
			if got.Text != "1:05.432" {
				t.Errorf("text = %q, want %q", got.Text, "1:05.432")
			}
		})
	}
}

func TestAssignDoesNotMutate(t *testing.T) {
	slots := []Slot{E, F, E}
	New().AssignNearestEmpty(slots, 5000, 0)
	if slots[0].Filled || !slots[1].Filled || slots[2].Filled {
		t.Errorf("slots mutated: %+v", slots)
	}
}

func TestNewPrefersForward(t *testing.T) {
	if !New().PreferForward {
		t.Error("New().PreferForward = false, want true")
	}
}

func TestRemoveLastFilled(t *testing.T) {
	engine := New()

	row, ok := engine.RemoveLastFilled([]Slot{E, F, E, F})
	if !ok || row != 3 {
		t.Errorf("RemoveLastFilled = %d, %v, want 3, true", row, ok)
	}

	row, ok = engine.RemoveLastFilled([]Slot{F, F, E, E})
	if !ok || row != 1 {
		t.Errorf("RemoveLastFilled = %d, %v, want 1, true", row, ok)
	}

	if _, ok := engine.RemoveLastFilled([]Slot{E, E}); ok {
		t.Error("RemoveLastFilled on empty slots reported a row")
	}
}

func TestSlotsFromText(t *testing.T) {
	slots := SlotsFromText([]string{"", "0:01.500", "  ", "garbage"})

	want := []Slot{E, Filled(1500), E, Filled(0)}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slot %d = %+v, want %+v", i, slots[i], want[i])
		}
	}
}
