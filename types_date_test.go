package cascade

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  Date
		err   bool
	}{
		{"2025-01-15", NewDate(2025, time.January, 15), false},
		{"2025-1-2", NewDate(2025, time.January, 2), false},
		{"1/2/2025", NewDate(2025, time.January, 2), false},
		{"01/06/2025", NewDate(2025, time.January, 6), false},
		{"not-a-date", Date{}, true},
		{"", Date{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseDate(tc.input)
			if (err != nil) != tc.err {
				t.Fatalf("ParseDate(%q) err = %v, want err %v", tc.input, err, tc.err)
			}
			if got != tc.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestDateAddNormalizes(t *testing.T) {
	if got := NewDate(2025, time.January, 31).Add(1); got != NewDate(2025, time.February, 1) {
		t.Errorf("Jan 31 + 1 = %s, want 2025-02-01", got)
	}
	if got := NewDate(2025, time.March, 1).Add(-1); got != NewDate(2025, time.February, 28) {
		t.Errorf("Mar 1 - 1 = %s, want 2025-02-28", got)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, time.January, 6)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2025-01-06"` {
		t.Errorf("marshal = %s, want \"2025-01-06\"", data)
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}
