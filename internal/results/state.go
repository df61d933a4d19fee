package results

import "github.com/SkothaSec/project-mimir/pkg/models"

// Phase is the lifecycle position of a view model.
type Phase int

const (
	Loading Phase = iota
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// State is one of Loading, Loaded(records) or Failed(message).
type State struct {
	Phase   Phase
	Records []models.AlertRecord
	Message string
}

// LoadingState is the initial state.
func LoadingState() State {
	return State{Phase: Loading}
}

// LoadedState holds a derived batch.
func LoadedState(records []models.AlertRecord) State {
	if records == nil {
		records = []models.AlertRecord{}
	}
	return State{Phase: Loaded, Records: records}
}

// FailedState carries a message for the user; it never carries records.
func FailedState(message string) State {
	return State{Phase: Failed, Message: message}
}
