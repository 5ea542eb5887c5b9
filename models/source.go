package models

import "time"

// SlideSource is one configured content source: which module produces its
// slides and the arguments that module is invoked with.
type SlideSource struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	ModuleName    string     `json:"module_name"`
	Arguments     Arguments  `json:"arguments"`
	Enabled       bool       `json:"enabled"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
