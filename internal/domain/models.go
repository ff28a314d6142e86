package domain

import "time"

type TargetID string

// Status is the observed state of a target. Unknown is only ever the
// pre-check state (new or just resumed); probes report online or offline.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Target is one monitored endpoint.
//
// UptimeScore is a smoothed reliability score in [0,100], not a
// percentage of the check history: each successful check adds 0.1 and
// each failure subtracts 5, so it drops fast and recovers slowly. Use
// the target's CheckRecord history for the raw pass/fail record.
type Target struct {
	ID                 TargetID   `json:"id"`
	URL                string     `json:"url"`
	Name               string     `json:"name"`
	Category           string     `json:"category"`
	Paused             bool       `json:"paused"`
	Status             Status     `json:"status"`
	LastResponseTimeMs int64      `json:"last_response_time_ms"`
	LastCheckedAt      *time.Time `json:"last_checked_at,omitempty"`
	UptimeScore        float64    `json:"uptime_score"`
	LastError          string     `json:"last_error,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TargetPatch carries an edit; nil fields are left untouched.
type TargetPatch struct {
	Name     *string `json:"name,omitempty"`
	URL      *string `json:"url,omitempty"`
	Category *string `json:"category,omitempty"`
}

// CheckRecord is one completed probe as kept in a target's history.
type CheckRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Status         Status    `json:"status"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// CheckOutcome is the normalized result a prober hands to the engine.
type CheckOutcome struct {
	Status         Status `json:"status"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// Online builds a successful outcome.
func Online(responseTimeMs int64) CheckOutcome {
	return CheckOutcome{Status: StatusOnline, ResponseTimeMs: responseTimeMs}
}

// Offline builds a failed outcome. Response time is always 0.
func Offline(reason string) CheckOutcome {
	return CheckOutcome{Status: StatusOffline, Error: reason}
}

type AlertKind string

const (
	AlertFailure  AlertKind = "failure"
	AlertRecovery AlertKind = "recovery"
)

type Alert struct {
	ID        string    `json:"id"`
	TargetID  TargetID  `json:"target_id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Transition is a committed state change of a single target, as seen
// by the alert emitter.
type Transition struct {
	Target   Target
	Previous Status
	Outcome  CheckOutcome
	Record   CheckRecord
}

// TargetSnapshot is the persisted form of a target with its history.
type TargetSnapshot struct {
	Target  Target        `json:"target"`
	History []CheckRecord `json:"history"`
}

// Stats summarizes one category.
type Stats struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Online    int    `json:"online"`
	Offline   int    `json:"offline"`
	AvgUptime int    `json:"avg_uptime"`
}
