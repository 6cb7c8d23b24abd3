package models

import "time"

// NavigationEvent signals that a tracked browser tab finished loading a
// new URL. The watcher uses it to invalidate stale analyses and, when
// auto-scan is on, to kick off a fresh pipeline run.
type NavigationEvent struct {
	URL       string    `json:"url"`
	TabID     string    `json:"tab_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
