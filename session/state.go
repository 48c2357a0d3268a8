package session

type State int

const (
	Idle State = iota
	FileSelected
	Analyzed
	Connected
	Mapping
	AwaitingConfirmation
	Clearing
	Uploading
	Completed
	Cancelled
	Failed
)

var stateNames = [...]string{
	Idle:                 "Idle",
	FileSelected:         "FileSelected",
	Analyzed:             "Analyzed",
	Connected:            "Connected",
	Mapping:              "Mapping",
	AwaitingConfirmation: "AwaitingConfirmation",
	Clearing:             "Clearing",
	Uploading:            "Uploading",
	Completed:            "Completed",
	Cancelled:            "Cancelled",
	Failed:               "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}
