package report

// Status is the outcome of a campaign run or of one of its scenarios.
// Values the backend sends that this client does not know decode to
// StatusUnknown.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusSuccess
	StatusFailure
	StatusStopped
	StatusNotExecuted
)

var statusNames = map[Status]string{
	StatusUnknown:     "UNKNOWN",
	StatusRunning:     "RUNNING",
	StatusSuccess:     "SUCCESS",
	StatusFailure:     "FAILURE",
	StatusStopped:     "STOPPED",
	StatusNotExecuted: "NOT_EXECUTED",
}

// ParseStatus maps a wire value to a Status. Values must match exactly, so
// "running" is not RUNNING.
func ParseStatus(s string) Status {
	switch s {
	case "RUNNING":
		return StatusRunning
	case "SUCCESS":
		return StatusSuccess
	case "FAILURE":
		return StatusFailure
	case "STOPPED":
		return StatusStopped
	case "NOT_EXECUTED":
		return StatusNotExecuted
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}
