package signal

import (
	"errors"
	"fmt"

	"github.com/banshee-data/intersection.report/internal/monitoring"
)

var (
	// ErrStructural is wrapped by every StructuralInputError.
	ErrStructural = errors.New("structural input error")
	// ErrNoRoads is returned when there is nothing to allocate.
	ErrNoRoads = fmt.Errorf("%w: no roads", ErrStructural)
)

// StructuralInputError reports an intersection payload with the wrong shape.
// Allocation is aborted for the whole intersection.
type StructuralInputError struct {
	Road  string // empty for payload-level problems
	Field string
	Msg   string
}

func (e *StructuralInputError) Error() string {
	switch {
	case e.Road != "" && e.Field != "":
		return fmt.Sprintf("road %q: %s: %s", e.Road, e.Field, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	default:
		return e.Msg
	}
}

func (e *StructuralInputError) Unwrap() error { return ErrStructural }

// WarningKind classifies a degenerate but non-fatal plan.
type WarningKind string

const (
	// WarnNegativeRed means green plus yellow overruns the cycle on a road.
	WarnNegativeRed WarningKind = "negative_red"
	// WarnMinimumGreenExceedsCycle means the base green times of all roads
	// together do not fit in one cycle.
	WarnMinimumGreenExceedsCycle WarningKind = "minimum_green_exceeds_cycle"
)

// Warning is returned alongside a plan that was computed but should be
// reviewed by an operator. The plan values are never adjusted.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Road    string      `json:"road,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Road != "" {
		return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Road, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// LogWarnings writes each warning to the monitoring logger.
func LogWarnings(ws []Warning) {
	for _, w := range ws {
		monitoring.Logf("signal: warning %s", w)
	}
}
