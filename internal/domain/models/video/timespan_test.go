package video

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
)

func TestNewTimeSpan_Valid(t *testing.T) {
	cases := []struct {
		start, end string
	}{
		{"00:00", "00:01"},
		{"01:30", "02:45"},
		{"00:59", "01:00"},
		{"99:58", "99:59"},
	}

	for _, tc := range cases {
		ts, err := NewTimeSpan(tc.start, tc.end)
		if err != nil {
			t.Errorf("NewTimeSpan(%q, %q) returned error: %v", tc.start, tc.end, err)
			continue
		}
		if ts.Start != tc.start || ts.End != tc.end {
			t.Errorf("NewTimeSpan(%q, %q) = %+v", tc.start, tc.end, ts)
		}
	}
}

func TestNewTimeSpan_Invalid(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
	}{
		{"inverted", "02:00", "01:00"},
		{"equal", "01:00", "01:00"},
		{"single digit minute", "1:00", "02:00"},
		{"missing colon", "0100", "02:00"},
		{"hours format", "00:01:00", "00:02:00"},
		{"empty start", "", "01:00"},
		{"empty end", "01:00", ""},
		{"letters", "aa:bb", "cc:dd"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTimeSpan(tc.start, tc.end)
			if err == nil {
				t.Fatalf("NewTimeSpan(%q, %q) succeeded, want error", tc.start, tc.end)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error %v does not match domain.ErrValidation", err)
			}
		})
	}
}

func TestTimeSpan_Seconds(t *testing.T) {
	ts, err := NewTimeSpan("01:30", "02:45")
	if err != nil {
		t.Fatalf("NewTimeSpan failed: %v", err)
	}
	if got := ts.StartSeconds(); got != 90 {
		t.Errorf("StartSeconds() = %d, want 90", got)
	}
	if got := ts.EndSeconds(); got != 165 {
		t.Errorf("EndSeconds() = %d, want 165", got)
	}
}

func TestTimeSpan_UnmarshalJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var ts TimeSpan
		if err := json.Unmarshal([]byte(`{"start_time":"00:10","end_time":"00:20"}`), &ts); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if ts.Start != "00:10" || ts.End != "00:20" {
			t.Errorf("unexpected span: %+v", ts)
		}
	})

	t.Run("inverted rejected", func(t *testing.T) {
		var ts TimeSpan
		err := json.Unmarshal([]byte(`{"start_time":"00:20","end_time":"00:10"}`), &ts)
		if err == nil {
			t.Fatal("unmarshal of inverted span succeeded, want error")
		}
	})
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{9, "00:09"},
		{60, "01:00"},
		{90, "01:30"},
		{605, "10:05"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
