package extractor

import "fmt"

// Slots are the validated fields read from oracle output. Empty strings mean
// the user did not mention the field.
type Slots struct {
	Title           string
	Date            string
	Time            string
	Description     string
	DurationMinutes int
	HasDuration     bool
	HasDescription  bool
}

// ExtractionError reports why an utterance could not be turned into slots.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }
