package models

import "time"

// Slot is one physical parking space. The occupancy fields are either all
// set (claimed) or all null (vacant); no partial state is ever persisted.
type Slot struct {
	Number    int        `db:"slot_number" json:"slotNumber"`
	Occupied  bool       `db:"occupied" json:"occupied"`
	RiderID   *int64     `db:"rider_id" json:"riderId,omitempty"`
	RFID      *string    `db:"rfid" json:"rfid,omitempty"`
	EntryTime *time.Time `db:"entry_time" json:"entryTime,omitempty"`
}
