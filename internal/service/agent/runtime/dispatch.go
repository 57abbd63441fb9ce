package runtime

import (
	"context"
	"log/slog"
)

// fallbackResponse is returned when an invocation's stream ends without a
// terminal text response.
const fallbackResponse = "Unable to generate a response."

// Ask submits a single query and consumes the event stream to exhaustion,
// returning the text of the last final event that carried any. A stream
// that ends without terminal text yields the fixed fallback string, not an
// error; transport faults from the runtime propagate unmodified.
func Ask(ctx context.Context, runner *Runner, userID, sessionID, query string, logger *slog.Logger) (string, error) {
	events, err := runner.Run(ctx, userID, sessionID, query)
	if err != nil {
		return "", err
	}

	answer := ""
	for ev := range events {
		if ev.Err != nil {
			if ev.Final {
				return "", ev.Err
			}
			// A faulty intermediate event poisons only itself.
			logger.Warn("skipping faulty event",
				"invocation_id", ev.InvocationID,
				"author", ev.Author,
				"error", ev.Err,
			)
			continue
		}
		if ev.Final && ev.Text != "" {
			answer = ev.Text
		}
	}

	if answer == "" {
		return fallbackResponse, nil
	}
	return answer, nil
}
