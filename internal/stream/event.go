package stream

// Event names used by the live-session broadcast protocol.
const (
	EventJoined   = "joined"
	EventQuestion = "question"
	EventRanking  = "ranking"
	EventUserRank = "user-rank"
)

// Event is a named message pushed to a client over its stream.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}
