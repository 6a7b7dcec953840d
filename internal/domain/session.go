package domain

import "time"

// Session correlates one cart across one or more client channels.
// ID never changes after creation. LinkedIdentity is empty until an
// external channel (e.g. a WhatsApp phone number) is linked; at most one
// session may hold a given identity at a time.
type Session struct {
	ID             string    `json:"session_id" bson:"_id"`
	LinkedIdentity string    `json:"linked_identity,omitempty" bson:"linked_identity,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	LastActiveAt   time.Time `json:"last_active_at" bson:"last_active_at"`
}

// Linked reports whether a channel identity has been bound to this session.
func (s *Session) Linked() bool {
	return s.LinkedIdentity != ""
}
