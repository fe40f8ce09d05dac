package session

// State is the connection state of a session.
type State int

const (
	// StateLoggedOut means no live connection: either nobody is logged in or
	// the last connection closed.
	StateLoggedOut State = iota
	// StateConnecting means a connection is being established.
	StateConnecting
	// StateConnected means the connection is open and the join was sent.
	StateConnected
	// StateErrored means the last connection failed with a transport error.
	StateErrored
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateErrored:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is a consistent view of the session at one point in time.
type Snapshot struct {
	Name  string
	State State
	// Err is the transport error behind StateErrored, nil otherwise.
	Err error
}

// LoggedIn reports whether a display name is set.
func (s Snapshot) LoggedIn() bool {
	return s.Name != ""
}
