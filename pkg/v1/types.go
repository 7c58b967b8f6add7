package v1

import "time"

// Snapshot is one archived capture of a URL.
type Snapshot struct {
	URL       string    `json:"url"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Link is the snapshot resolved for a target month.
type Link struct {
	Found     bool     `json:"found"`
	Target    string   `json:"target"`
	Snapshot  Snapshot `json:"snapshot"`
	URL       string   `json:"link,omitempty"`
	LocalPath string   `json:"local_path,omitempty"`
	Distance  int      `json:"distance_months"`
}

// RetentionPolicy decides which snapshots a cleanup deletes.
type RetentionPolicy struct {
	MaxAgeDays       int  `json:"max_age_days"`
	KeepMonthlyFirst bool `json:"keep_monthly_first"`
}

// Plan is the outcome of evaluating a RetentionPolicy.
type Plan struct {
	Cutoff time.Time  `json:"cutoff"`
	Delete []Snapshot `json:"delete"`
	Exempt []Snapshot `json:"exempt"`
	Keep   []Snapshot `json:"keep"`
}
