package orchestrator

// State is a phase of a single orchestration run.
type State int

const (
	// AwaitingModel is the initial state: a model round-trip is pending.
	AwaitingModel State = iota

	// ExecutingTool means the model requested a tool and it is being run.
	ExecutingTool

	// Done is terminal. It is reached on a text answer or when the
	// iteration budget is exhausted.
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting_model"
	case ExecutingTool:
		return "executing_tool"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Event reports a state transition to an Observer.
type Event struct {
	// Iteration is the 1-based model round-trip the transition belongs to.
	Iteration int
	State     State

	// Tool is set when State is ExecutingTool.
	Tool string
}

// Observer receives state transitions of every run. It is called
// synchronously on the run's goroutine.
type Observer func(Event)
