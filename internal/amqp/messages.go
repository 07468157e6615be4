package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"lifedash/internal/core"
)

// HabitEntryLogged is published after every successful entry upsert. The
// worker exports it as one spreadsheet row. ID is the entry ID and Version
// its UpdatedAt in milliseconds, so a redelivery of the same write carries
// the same (ID, Version) pair while a later write of the same day does not.
type HabitEntryLogged struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habit_id"`
	UserID    string    `json:"user_id"`
	HabitName string    `json:"habit_name"`
	Day       string    `json:"day"`
	Completed bool      `json:"completed"`
	Notes     string    `json:"notes,omitempty"`
	LoggedAt  time.Time `json:"logged_at"`
	Version   int64     `json:"version"`
}

func NewHabitEntryLogged(e core.HabitEntry, habitName string) *HabitEntryLogged {
	return &HabitEntryLogged{
		ID:        e.ID,
		HabitID:   e.HabitID,
		UserID:    e.UserID,
		HabitName: habitName,
		Day:       e.Day.String(),
		Completed: e.Completed,
		Notes:     e.Notes,
		LoggedAt:  e.UpdatedAt.UTC(),
		Version:   e.UpdatedAt.UnixMilli(),
	}
}

// DedupKey identifies one logical delivery.
func (m *HabitEntryLogged) DedupKey() string {
	return fmt.Sprintf("%s:%d", m.ID, m.Version)
}

func (m *HabitEntryLogged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// HabitEntryLoggedFromJSON decodes a message body. The day must be a valid
// YYYY-MM-DD key; anything else is treated as a poison message.
func HabitEntryLoggedFromJSON(data []byte) (*HabitEntryLogged, error) {
	var msg HabitEntryLogged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.HabitID == "" {
		return nil, fmt.Errorf("message missing id or habit_id")
	}
	if _, err := core.ParseDayKey(msg.Day); err != nil {
		return nil, err
	}
	return &msg, nil
}
