package records

import "time"

// Record is one accepted form submission. It is written once and never
// changed afterwards.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Father     string    `json:"father"`
	DOB        string    `json:"dob"`
	Mobile     string    `json:"mobile"`
	NationalID string    `json:"nationalId"`
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
}

// Summary is the lightweight entry kept in the recent-submissions list.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

func (r Record) Summary() Summary {
	return Summary{ID: r.ID, Name: r.Name, Timestamp: r.Timestamp}
}

// Stats are approximate counters: concurrent submissions may overwrite each
// other's increments.
type Stats struct {
	Total       int       `json:"total"`
	Today       int       `json:"today"`
	LastUpdated time.Time `json:"lastUpdated"`
	// LastDate is the UTC calendar date (YYYY-MM-DD) Today counts for.
	LastDate string `json:"lastDate,omitempty"`
}

// Current returns the stats as seen at now: Today reads as zero once the
// calendar date has moved past LastDate.
func (s Stats) Current(now time.Time) Stats {
	if s.LastDate != dateOf(now) {
		s.Today = 0
	}
	return s
}

func dateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
