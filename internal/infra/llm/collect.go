package llm

import "strings"

// Collect drains a stream and returns the concatenated content. If onDelta is
// non-nil it is called with each non-empty fragment in arrival order. Text
// received before a mid-stream error is returned along with the error.
func Collect(stream <-chan StreamDelta, onDelta func(string)) (string, error) {
	var b strings.Builder
	for d := range stream {
		if d.Err != nil {
			return b.String(), d.Err
		}
		if d.Content != "" {
			b.WriteString(d.Content)
			if onDelta != nil {
				onDelta(d.Content)
			}
		}
		if d.Done {
			break
		}
	}
	return b.String(), nil
}
