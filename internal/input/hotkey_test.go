package input

import "testing"

func TestParseCombo(t *testing.T) {
	tests := []struct {
		name     string
		combo    string
		wantMods int
		wantErr  bool
	}{
		{"plain key", "space", 0, false},
		{"single modifier", "ctrl+space", 1, false},
		{"stacked modifiers", "ctrl+shift+r", 2, false},
		{"alt alias", "alt+f2", 1, false},
		{"case and spacing tolerant", " Ctrl + Shift + Space ", 2, false},
		{"function key", "f12", 0, false},
		{"unknown key", "ctrl+banana", 0, true},
		{"two keys", "a+b", 0, true},
		{"modifiers only", "ctrl+shift", 0, true},
		{"empty", "", 0, true},
		{"dangling plus", "ctrl+", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mods, _, err := ParseCombo(tc.combo)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCombo(%q) error = %v, wantErr %v", tc.combo, err, tc.wantErr)
			}
			if err == nil && len(mods) != tc.wantMods {
				t.Errorf("ParseCombo(%q) modifiers = %d, want %d", tc.combo, len(mods), tc.wantMods)
			}
		})
	}
}

func TestHoldStateDedupes(t *testing.T) {
	var states []bool
	l := NewListener(ModeHold, func(active bool) {
		states = append(states, active)
	})

	l.setActive(true)
	l.setActive(true) // key repeat while held
	l.setActive(false)
	l.setActive(false)

	want := []bool{true, false}
	if len(states) != len(want) {
		t.Fatalf("state changes = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state changes = %v, want %v", states, want)
		}
	}
	if l.IsActive() {
		t.Error("listener active after release")
	}
}
