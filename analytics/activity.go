package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Measurement names the event stream an activity is tracked in.
type Measurement string

const (
	MeasurementData   Measurement = "data"
	MeasurementButton Measurement = "button"
)

const (
	// activityWindow is how far back a cookie's previous event keeps its activity alive.
	activityWindow = 30 * time.Minute
	// burstInterval is the gap under which consecutive requests count as a burst.
	burstInterval = 5 * time.Second
)

// LastActivity is the most recent event of a cookie in one measurement.
type LastActivity struct {
	ActivityID string
	RequestCnt int
	At         time.Time
}

// Activity is the activity id and burst counter assigned to a new event.
type Activity struct {
	ID         string
	RequestCnt int
}

// NextActivity derives the activity for an event at now given the previous
// event of the same cookie, or nil when there was none inside activityWindow.
func NextActivity(last *LastActivity, now time.Time, newID func() string) Activity {
	if last == nil || now.Sub(last.At) > activityWindow {
		return Activity{ID: newID(), RequestCnt: 1}
	}
	if now.Sub(last.At) < burstInterval {
		return Activity{ID: last.ActivityID, RequestCnt: last.RequestCnt + 1}
	}
	return Activity{ID: last.ActivityID, RequestCnt: 1}
}

func newActivityID() string {
	return uuid.NewString()
}
