package internal

import "time"

// SnapshotView is the JSON shape of a snapshot in command and API output.
type SnapshotView struct {
	URL       string   `json:"url"`
	Timestamp string   `json:"timestamp"`
	Time      string   `json:"time"`
	Title     string   `json:"title,omitempty"`
	Tags      []string `json:"tags"`
	Scope     string   `json:"scope"`
}

func NewSnapshotView(scope Scope, s Snapshot) SnapshotView {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return SnapshotView{
		URL:       s.URL,
		Timestamp: s.TimestampID(),
		Time:      s.Timestamp.UTC().Format(time.RFC3339),
		Title:     s.Title,
		Tags:      tags,
		Scope:     scope.String(),
	}
}

// LinkView is the JSON shape of a nearest-snapshot resolution.
type LinkView struct {
	Status    string `json:"status"`
	Target    string `json:"target"`
	URL       string `json:"url,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Month     string `json:"month,omitempty"`
	Link      string `json:"link,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	Distance  int    `json:"distance_months"`
}

func NewLinkView(r ResolvedLink) LinkView {
	v := LinkView{
		Status: r.Kind.String(),
		Target: r.Target.String(),
	}
	if !r.Found() {
		return v
	}
	v.URL = r.Snapshot.URL
	v.Timestamp = r.Timestamp
	v.Month = r.Snapshot.Month().String()
	v.Link = r.Link
	v.LocalPath = r.LocalPath
	v.Distance = r.Distance
	return v
}
