package shared

// FeedStatus represents the connection status of a market feed.
type FeedStatus int

const (
	Disconnected FeedStatus = iota
	Connecting
	Connected
	Reconnecting
	FeedError
)

// String stringifies the provided feed status.
func (s FeedStatus) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case FeedError:
		return "error"
	default:
		return "unknown status"
	}
}

// StatusUpdate represents a feed connection status transition.
type StatusUpdate struct {
	// Status is the new connection status.
	Status FeedStatus
	// Message is an optional human-readable detail for the transition.
	Message string
}
