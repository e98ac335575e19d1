package model

import "time"

// Identity is the opaque, fixed-length hash that represents one party.
type Identity = string

// CreditEntry records that User spent their sending right on PairHash.
type CreditEntry struct {
	ID       string
	User     Identity
	IssuedAt time.Time
	PairHash string
}

// PendingMatch is an unreciprocated signal for a pair.
type PendingMatch struct {
	ID              string
	PairHash        string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	MutualConfirmed bool
}

// Expired reports whether the validity window has passed at now.
func (p PendingMatch) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// Notification is created in pairs when a match is established. It is owned
// by its recipient (To) and references the matched counterpart (Context).
type Notification struct {
	ID        string
	To        Identity
	Context   Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the notification should be hidden from readers.
func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.After(now)
}
