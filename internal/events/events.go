package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const Source = "school-portal-service"

// Event types double as topic names on the bus
const (
	TypeStudentLinked   = "student.linked"
	TypeAttendanceSaved = "attendance.saved"
	TypeRosterImported  = "roster.imported"
)

// Event is the envelope written to every topic
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type StudentLinkedEvent struct {
	StudentID string `json:"student_id"`
	ParentID  string `json:"parent_id"`
	ClassID   string `json:"class_id,omitempty"`
	Method    string `json:"method"`
}

type AttendanceSavedEvent struct {
	ClassID    string   `json:"class_id"`
	Date       string   `json:"date"`
	StudentIDs []string `json:"student_ids"`
	MarkedBy   string   `json:"marked_by"`
}

type RosterImportedEvent struct {
	ClassID    string   `json:"class_id"`
	StudentIDs []string `json:"student_ids"`
	ImportedBy string   `json:"imported_by"`
}

// NewEvent wraps data in an envelope of the given type
func NewEvent(eventType string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    Source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the payload into dest
func (e Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
