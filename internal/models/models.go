// Package models holds the shared data-model types for videocatalogd:
// drives, inventory rows, feature vectors, events, jobs and subscribers.
package models

import "time"

// Drive is a registered storage volume that inventory rows reference by
// label. Shard databases are keyed by the same label.
type Drive struct {
	Label      string     `json:"label"`
	MountPath  string     `json:"mount_path"`
	ShardPath  string     `json:"shard_path"`
	Filesystem string     `json:"filesystem,omitempty"`
	TotalBytes int64      `json:"total_bytes,omitempty"`
	FreeBytes  int64      `json:"free_bytes,omitempty"`
	LastSeen   *time.Time `json:"last_seen_utc,omitempty"`
	Online     bool       `json:"online"`
}

// InventoryRow describes one file discovered under a drive.
type InventoryRow struct {
	ID          int64     `json:"id"`
	Drive       string    `json:"drive"`
	Path        string    `json:"path"`
	Category    string    `json:"category"`
	Ext         string    `json:"ext"`
	Mime        string    `json:"mime,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	ModifiedUTC time.Time `json:"modified_utc"`
	DocID       string    `json:"doc_id"`
}

// FeatureVector is the vector-search embedding for a catalog document.
type FeatureVector struct {
	DocID     string    `json:"doc_id"`
	Kind      string    `json:"kind"`
	Dim       int       `json:"dim"`
	Vector    []float32 `json:"vector"`
	UpdatedAt time.Time `json:"updated_at_utc"`
}

// Event is an append-only row in events_queue.
type Event struct {
	Seq       int64          `json:"seq"`
	TimestampUTC time.Time   `json:"ts_utc"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
}

// VectorPending is a row in vectors_pending awaiting embedding refresh.
type VectorPending struct {
	DocID      string    `json:"doc_id"`
	Kind       string    `json:"kind"`
	QueuedAt   time.Time `json:"queued_at_utc"`
	Attempts   int       `json:"attempts"`
}

// JobStatus enumerates the job lifecycle states.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobLeased    JobStatus = "leased"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// ResourceClass partitions job execution concurrency.
type ResourceClass string

const (
	ResourceGPU      ResourceClass = "heavy_ai_gpu"
	ResourceLightCPU ResourceClass = "light_cpu"
	ResourceIOLight  ResourceClass = "io_light"
)

// Job is a unit of scheduled background work, as spec.md §3's Job record.
type Job struct {
	ID           int64          `json:"id"`
	Kind         string         `json:"kind"`
	Payload      map[string]any `json:"payload,omitempty"`
	Priority     int            `json:"priority"`
	Resource     ResourceClass  `json:"resource"`
	Status       JobStatus      `json:"status"`
	Attempts     int            `json:"attempts"`
	MaxAttempts  int            `json:"max_attempts"`
	LeaseOwner   string         `json:"lease_owner,omitempty"`
	LeaseUTC     *time.Time     `json:"lease_utc,omitempty"`
	HeartbeatUTC *time.Time     `json:"heartbeat_utc,omitempty"`
	CreatedUTC   time.Time      `json:"created_utc"`
	StartedUTC   *time.Time     `json:"started_utc,omitempty"`
	EndedUTC     *time.Time     `json:"ended_utc,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMsg     string         `json:"error_msg,omitempty"`
}

// JobCheckpoint records resumable progress for a long-running job.
type JobCheckpoint struct {
	JobID      int64          `json:"job_id"`
	Checkpoint map[string]any `json:"ckpt_json"`
	UpdatedUTC time.Time      `json:"updated_utc"`
}

// ResourceLock arbitrates a scarce resource (currently only the GPU) across
// job kinds that need exclusive access.
type ResourceLock struct {
	Name      string    `json:"name"`
	HeldBy    string    `json:"held_by,omitempty"`
	AcquiredUTC time.Time `json:"acquired_utc,omitempty"`
}

// Movie is one item in the catalog's enriched movie metadata table,
// distinct from the raw per-drive inventory row it was identified from.
type Movie struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Year            int     `json:"year,omitempty"`
	Path            string  `json:"path,omitempty"`
	DriveLabel      string  `json:"drive_label,omitempty"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	Quality    string   `json:"quality,omitempty"`
	AudioLangs []string `json:"audio_langs,omitempty"`
	SubLangs   []string `json:"sub_langs,omitempty"`
}

// TVSeries is one catalog TV series.
type TVSeries struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TVEpisode is one catalog TV episode belonging to a series.
type TVEpisode struct {
	ID       string `json:"id"`
	SeriesID string `json:"series_id"`
	Season   int    `json:"season,omitempty"`
	Episode  int    `json:"episode,omitempty"`
	Title    string `json:"title,omitempty"`
	Path     string `json:"path,omitempty"`
}
