package domain

import "time"

// SyncStats holds statistics about one repository sync.
type SyncStats struct {
	FullName    string
	Files       int
	Uploaded    int
	Unchanged   int
	Conversions int
	Created     bool
	Renamed     bool
	Duration    time.Duration
}

// ResyncStats summarizes a bulk resync.
type ResyncStats struct {
	Insights       int
	InsightsFailed int
	Users          int
	UsersFailed    int
	Duration       time.Duration
}
