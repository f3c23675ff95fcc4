package watchdog

// Event types published on the event bus.
const (
	EventStarted          = "watchdog.started"
	EventHandshake        = "watchdog.handshake"
	EventPeerUnresponsive = "watchdog.peer_unresponsive"
	EventPeerRestarted    = "watchdog.peer_restarted"
	EventRestartGaveUp    = "watchdog.restart_gave_up"
	EventStopRequested    = "watchdog.stop_requested"
	EventStopped          = "watchdog.stopped"
)

// EventData is the payload of every watchdog event.
type EventData struct {
	Role    string `json:"role"`
	PeerPID int    `json:"peer_pid"`
	Detail  string `json:"detail,omitempty"`
}
