package models

import "time"

// ContentType is the kind of content a watchlist row refers to
type ContentType string

const (
	ContentTypeMovie ContentType = "movie"
	ContentTypeShow  ContentType = "show"
)

// Series statuses reported by Sonarr
const (
	SeriesStatusContinuing = "continuing"
	SeriesStatusEnded      = "ended"
)

// User is a Plex user whose watchlist feeds the demand set
type User struct {
	ID        uint64 `boltholdKey:"ID"`
	Name      string `boltholdIndex:"Name"`
	PlexToken string `json:"-"`
	IsPrimary bool
	// SyncDisabled opts the user out of sync; the zero value keeps sync enabled.
	SyncDisabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SyncEnabled reports whether the user's watchlist participates in sync
func (u User) SyncEnabled() bool {
	return !u.SyncDisabled
}

// WatchlistItem is a persisted watchlist row owned by the ingestion pipeline
type WatchlistItem struct {
	ID     uint64      `boltholdKey:"ID"`
	UserID uint64      `boltholdIndex:"UserID"`
	Key    string      // Plex rating key of the watchlisted item
	Title  string
	Type   ContentType `boltholdIndex:"Type"`
	// GUIDs holds the JSON-encoded GUID array exactly as persisted.
	GUIDs        string
	Status       string
	SeriesStatus string // "continuing" or "ended", shows only
	MovieStatus  string // "available" or "unavailable", movies only

	SonarrInstanceID *int
	RadarrInstanceID *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SonarrItem is one series in a Sonarr library
type SonarrItem struct {
	ArrID        int64    `json:"arrId"`
	Title        string   `json:"title"`
	GUIDs        []string `json:"guids"`
	InstanceID   int      `json:"instanceId"`
	SeriesStatus string   `json:"seriesStatus,omitempty"`
}

// IsEnded reports whether Sonarr considers the series finished
func (s SonarrItem) IsEnded() bool {
	return s.SeriesStatus == SeriesStatusEnded
}

// RadarrItem is one movie in a Radarr library
type RadarrItem struct {
	ArrID      int64    `json:"arrId"`
	Title      string   `json:"title"`
	GUIDs      []string `json:"guids"`
	InstanceID int      `json:"instanceId"`
}

// DeletedItem records a single deletion (or would-be deletion in dry run)
type DeletedItem struct {
	Title    string `json:"title"`
	GUID     string `json:"guid"`
	Instance int    `json:"instance"`
}

// DeletionTotals aggregates every bucket of a run
type DeletionTotals struct {
	Deleted   int `json:"deleted"`
	Skipped   int `json:"skipped"`
	Processed int `json:"processed"`
	Protected int `json:"protected"`
}

// DeletionBucket holds the counters and records for one content class
type DeletionBucket struct {
	Deleted   int           `json:"deleted"`
	Skipped   int           `json:"skipped"`
	Protected int           `json:"protected"`
	Items     []DeletedItem `json:"items"`
}

// Processed is the number of items that reached a decision in this bucket
func (b DeletionBucket) Processed() int {
	return b.Deleted + b.Skipped + b.Protected
}

// DeletionResult is the summary of one delete sync run
type DeletionResult struct {
	Total           DeletionTotals `json:"total"`
	Movies          DeletionBucket `json:"movies"`
	Shows           DeletionBucket `json:"shows"`
	SafetyTriggered bool           `json:"safetyTriggered,omitempty"`
	SafetyMessage   string         `json:"safetyMessage,omitempty"`
}

// NewDeletionResult returns an empty result with non-nil item lists
func NewDeletionResult() *DeletionResult {
	return &DeletionResult{
		Movies: DeletionBucket{Items: []DeletedItem{}},
		Shows:  DeletionBucket{Items: []DeletedItem{}},
	}
}

// NewSafetyTriggeredResult builds the result of an aborted run. Every inventory
// item is reported as skipped so the bucket arithmetic still holds.
func NewSafetyTriggeredResult(message string, seriesCount, movieCount int) *DeletionResult {
	result := NewDeletionResult()
	result.SafetyTriggered = true
	result.SafetyMessage = message
	result.Shows.Skipped = seriesCount
	result.Movies.Skipped = movieCount
	result.Total.Skipped = seriesCount + movieCount
	result.Total.Processed = seriesCount + movieCount
	return result
}

// Finalize recomputes the totals from the per-type buckets
func (r *DeletionResult) Finalize() {
	r.Total.Deleted = r.Movies.Deleted + r.Shows.Deleted
	r.Total.Skipped = r.Movies.Skipped + r.Shows.Skipped
	r.Total.Protected = r.Movies.Protected + r.Shows.Protected
	r.Total.Processed = r.Movies.Processed() + r.Shows.Processed()
}

// SafetyCheck is the verdict of the mass-deletion circuit breaker
type SafetyCheck struct {
	Safe               bool
	Message            string
	CandidateCount     int
	TotalCount         int
	DeletionPercentage float64
}

// DeleteSyncReport is the persisted record of one delete sync run
type DeleteSyncReport struct {
	GeneratedAt string          `json:"generatedAt"`
	RunType     string          `json:"runType"` // "dry-run" or "real"
	DurationMS  int64           `json:"durationMs"`
	Result      *DeletionResult `json:"result"`
}
