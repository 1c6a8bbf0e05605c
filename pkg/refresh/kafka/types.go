package kafka

import "time"

// Event asks for one map, or every map fed by Key, to be reloaded from its
// source. Version 0 means unversioned and is never deduplicated.
type Event struct {
	Map     string    `json:"map,omitempty"`
	Key     string    `json:"key,omitempty"`
	Version uint64    `json:"version"`
	TS      time.Time `json:"ts"`
	Op      string    `json:"op,omitempty"`
}
