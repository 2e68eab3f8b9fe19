package domain

// Event types pushed to connected clients.
const (
	EventBalance        = "balance"
	EventLevelUnlocked  = "level_unlocked"
	EventLevelCompleted = "level_completed"
)

// Event is a notification for one user, published after the change commits.
type Event struct {
	Type        string       `json:"type"`
	UserID      int64        `json:"user_id"`
	Balance     int64        `json:"balance"`
	Level       int          `json:"level,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
