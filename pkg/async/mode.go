package async

// State tells how a mode was chosen.
type State int

const (
	StateOff State = iota
	StateDefault
	StateNamed
	StateExplicit
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateDefault:
		return "default"
	case StateNamed:
		return "named"
	case StateExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// Mode is a client's dispatch setting: off, or bound to a job.
// The zero value is off. Modes are comparable.
type Mode struct {
	job   Job
	state State
}

// Off returns the synchronous mode.
func Off() Mode { return Mode{} }

// Using returns a mode bound to j. A nil job yields Off.
func Using(j Job) Mode {
	if j == nil {
		return Mode{}
	}
	return Mode{job: j, state: StateExplicit}
}

func modeWith(j Job, s State) Mode {
	return Mode{job: j, state: s}
}

// Job returns the bound job, if any.
func (m Mode) Job() (Job, bool) {
	return m.job, m.job != nil
}

// IsOff reports whether requests run inline.
func (m Mode) IsOff() bool { return m.job == nil }

// State returns how the mode was chosen.
func (m Mode) State() State { return m.state }

func (m Mode) String() string {
	if m.job == nil {
		return "off"
	}
	return m.state.String() + ":" + m.job.Name()
}
