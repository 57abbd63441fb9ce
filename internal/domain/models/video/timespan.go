package video

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
)

// timePattern matches zero-padded MM:SS timestamps. The fixed width makes
// lexicographic string comparison equal to chronological comparison, which
// span derivation relies on.
var timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// TimeSpan is a validated (start, end) pair over the video timeline, stored
// as MM:SS text. Construct through NewTimeSpan (or JSON decoding, which
// validates the same way); a TimeSpan is immutable once built.
type TimeSpan struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// NewTimeSpan validates and returns a TimeSpan. Both timestamps must match
// the MM:SS pattern and start must be strictly before end.
func NewTimeSpan(start, end string) (TimeSpan, error) {
	ts := TimeSpan{Start: start, End: end}
	if err := ts.Validate(); err != nil {
		return TimeSpan{}, err
	}
	return ts, nil
}

// Validate checks the MM:SS format of both timestamps and the strict
// start < end ordering. Returns *domain.ValidationError on failure.
func (t TimeSpan) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.Start,
			validation.Required,
			validation.Match(timePattern).Error("must be in MM:SS format")),
		validation.Field(&t.End,
			validation.Required,
			validation.Match(timePattern).Error("must be in MM:SS format")),
	)
	if err != nil {
		return domain.NewValidationError("invalid time span: %v", err)
	}
	if t.Start >= t.End {
		return domain.NewValidationError(
			"start_time (%s) must be strictly before end_time (%s)", t.Start, t.End)
	}
	return nil
}

// UnmarshalJSON decodes and validates in one step so that malformed spans
// are rejected at construction, never later.
func (t *TimeSpan) UnmarshalJSON(data []byte) error {
	type alias TimeSpan
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts := TimeSpan(raw)
	if err := ts.Validate(); err != nil {
		return err
	}
	*t = ts
	return nil
}

// StartSeconds converts the start timestamp to seconds since video start.
func (t TimeSpan) StartSeconds() int { return toSeconds(t.Start) }

// EndSeconds converts the end timestamp to seconds since video start.
func (t TimeSpan) EndSeconds() int { return toSeconds(t.End) }

// toSeconds maps MM:SS to minutes*60+seconds. Assumes the timestamp passed
// construction-time validation; that is the sole guard by design.
func toSeconds(ts string) int {
	parts := strings.SplitN(ts, ":", 2)
	minutes, _ := strconv.Atoi(parts[0])
	seconds, _ := strconv.Atoi(parts[1])
	return minutes*60 + seconds
}

// digits strips the colon: "01:30" -> "0130". Used for ID derivation.
func digits(ts string) string {
	return strings.ReplaceAll(ts, ":", "")
}

// FormatTimestamp renders whole seconds as a zero-padded MM:SS string.
func FormatTimestamp(seconds int) string {
	m := seconds / 60
	s := seconds % 60
	return padTwo(m) + ":" + padTwo(s)
}

func padTwo(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
