package repository

import "errors"

var (
	// ErrApplicationNotFound is returned when no application has the requested id.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrParticipantNotFound is returned when no participant has the requested id.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrReportJobNotFound is returned when no export job has the requested id.
	ErrReportJobNotFound = errors.New("report job not found")
	// ErrRevisionConflict is returned when a compare-and-swap write sees a newer revision.
	ErrRevisionConflict = errors.New("application revision changed")
)

// NoRevisionCheck disables compare-and-swap on compliance document writes.
const NoRevisionCheck int64 = -1
