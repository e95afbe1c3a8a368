package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceUnknown is the sentinel stored when Graph omits a value. The store
// never contains an empty availability or activity.
const PresenceUnknown = "PresenceUnknown"

// Availability values reported by Graph presence
const (
	AvailabilityAvailable     = "Available"
	AvailabilityAvailableIdle = "AvailableIdle"
	AvailabilityAway          = "Away"
	AvailabilityBeRightBack   = "BeRightBack"
	AvailabilityBusy          = "Busy"
	AvailabilityBusyIdle      = "BusyIdle"
	AvailabilityDoNotDisturb  = "DoNotDisturb"
	AvailabilityOffline       = "Offline"
)

// Activity values reported by Graph presence
const (
	ActivityAvailable               = "Available"
	ActivityAway                    = "Away"
	ActivityBeRightBack             = "BeRightBack"
	ActivityBusy                    = "Busy"
	ActivityDoNotDisturb            = "DoNotDisturb"
	ActivityInACall                 = "InACall"
	ActivityInAConferenceCall       = "InAConferenceCall"
	ActivityInAMeeting              = "InAMeeting"
	ActivityOffWork                 = "OffWork"
	ActivityOffline                 = "Offline"
	ActivityOnThePhone              = "OnThePhone"
	ActivityOutOfOffice             = "OutOfOffice"
	ActivityPresenting              = "Presenting"
	ActivityUrgentInterruptionsOnly = "UrgentInterruptionsOnly"
)

// CurrentPresence holds the latest known presence, one row per user.
// FetchedAt records when the state was fetched from Graph, not when it was
// saved, and is monotonically non-decreasing per user.
type CurrentPresence struct {
	BaseModel
	UserID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uq_current_presences_user_id" json:"user_id"`
	Availability string        `gorm:"type:varchar(32);not null;index:idx_current_presences_availability" json:"availability"`
	Activity     string        `gorm:"type:varchar(32);not null;index:idx_current_presences_activity" json:"activity"`
	FetchedAt    time.Time     `gorm:"not null;index:idx_current_presences_fetched_at" json:"fetched_at"`
	User         DirectoryUser `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for CurrentPresence
func (CurrentPresence) TableName() string {
	return "current_presences"
}

// PresenceSnapshot is an append-only time series of presence observations.
// Rows are never mutated or deleted by the sync engine.
type PresenceSnapshot struct {
	BaseModel
	UserID       uuid.UUID     `gorm:"type:uuid;not null;index:idx_presence_snapshots_user_fetched,priority:1" json:"user_id"`
	Availability string        `gorm:"type:varchar(32);not null" json:"availability"`
	Activity     string        `gorm:"type:varchar(32);not null" json:"activity"`
	FetchedAt    time.Time     `gorm:"not null;index:idx_presence_snapshots_user_fetched,priority:2;index:idx_presence_snapshots_fetched_at" json:"fetched_at"`
	User         DirectoryUser `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for PresenceSnapshot
func (PresenceSnapshot) TableName() string {
	return "presence_snapshots"
}
