package domain

import "time"

// Domain contains core models shared by the probe pipeline.

// Snapshot records the service identity reported by one capabilities probe.
type Snapshot struct {
	EndpointID string    `json:"endpoint_id"`
	RequestURL string    `json:"request_url"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// SameService reports whether two snapshots describe the same name and title.
func (s Snapshot) SameService(other Snapshot) bool {
	return s.Name == other.Name && s.Title == other.Title
}
