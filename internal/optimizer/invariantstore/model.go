package invariantstore

import (
	"encoding/json"
	"time"
)

// InvariantRecord is a durable log entry of one completed or failed
// optimize() run, kept for offline cross-run invariant auditing (did a
// method's final node/symref counts drift for the same strategy hash
// across two unrelated runs).
type InvariantRecord struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	CompilationID string    `gorm:"index;size:36;not null" json:"compilation_id"`
	MethodID      string    `gorm:"index;not null" json:"method_id"`
	StrategyHash  string    `gorm:"size:64;not null" json:"strategy_hash"`
	NodeCount     int       `json:"node_count"`
	SymRefCount   int       `json:"symref_count"`
	Outcome       string    `gorm:"index;size:32;not null" json:"outcome"`
	Detail        string    `gorm:"type:text" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// ParsedDetail is Detail decoded into a map, populated lazily via
	// GetDetail and not persisted directly.
	ParsedDetail map[string]any `gorm:"-" json:"detail,omitempty"`
}

// TableName returns the table name for InvariantRecord.
func (InvariantRecord) TableName() string {
	return "invariant_records"
}

// Outcome values recorded for a compilation.
const (
	OutcomeCompleted    = "completed"
	OutcomeInterrupted  = "interrupted"
	OutcomeFailed       = "failed"
	OutcomeExcessiveCFG = "excessive_complexity"
)

// GetDetail returns the parsed detail blob, decoding it from Detail on
// first access.
func (r *InvariantRecord) GetDetail() (map[string]any, error) {
	if r.ParsedDetail != nil {
		return r.ParsedDetail, nil
	}
	if r.Detail == "" {
		return make(map[string]any), nil
	}
	var detail map[string]any
	if err := json.Unmarshal([]byte(r.Detail), &detail); err != nil {
		return nil, err
	}
	r.ParsedDetail = detail
	return detail, nil
}

// SetDetail encodes detail into Detail and caches it in ParsedDetail.
func (r *InvariantRecord) SetDetail(detail map[string]any) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	r.Detail = string(data)
	r.ParsedDetail = detail
	return nil
}
