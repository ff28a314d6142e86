package domain

import "time"

const (
	MaxUptime     = 100.0
	uptimeGain    = 0.1
	uptimePenalty = 5.0
	InitialUptime = MaxUptime
)

// ApplyOutcome moves t to its next state for one performed check and
// returns the record to append to its history. The caller must not
// call it for paused targets.
func ApplyOutcome(t *Target, out CheckOutcome, now time.Time) CheckRecord {
	checked := now
	t.LastCheckedAt = &checked

	if out.Status == StatusOnline {
		t.Status = StatusOnline
		t.UptimeScore = ClampUptime(t.UptimeScore + uptimeGain)
		t.LastError = ""
		t.LastResponseTimeMs = out.ResponseTimeMs
	} else {
		// anything that is not a clean online result counts as a failure
		t.Status = StatusOffline
		t.UptimeScore = ClampUptime(t.UptimeScore - uptimePenalty)
		t.LastError = out.Error
		t.LastResponseTimeMs = 0
	}

	return CheckRecord{
		Timestamp:      now,
		Status:         t.Status,
		ResponseTimeMs: t.LastResponseTimeMs,
	}
}

// ClampUptime bounds v to [0, MaxUptime].
func ClampUptime(v float64) float64 {
	if v > MaxUptime {
		return MaxUptime
	}
	if v < 0 {
		return 0
	}
	return v
}
