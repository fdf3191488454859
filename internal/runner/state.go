package runner

// State is a run's position in its lifecycle. States only move forward.
type State int32

const (
	NotStarted State = iota
	Scaffolding
	Spawned
	Streaming
	Exited
	ResultParsed
	ReportAttempted
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Scaffolding:
		return "Scaffolding"
	case Spawned:
		return "Spawned"
	case Streaming:
		return "Streaming"
	case Exited:
		return "Exited"
	case ResultParsed:
		return "ResultParsed"
	case ReportAttempted:
		return "ReportAttempted"
	case Done:
		return "Done"
	}
	return "Unknown"
}
