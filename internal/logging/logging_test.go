package logging

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		json    bool
		wantErr bool
	}{
		{"info", false, false},
		{"debug", true, false},
		{"warn", false, false},
		{"loud", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, tt.json)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for bad level")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected no-op logger for nil input")
	}
}
