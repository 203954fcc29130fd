package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DashboardState is the authoritative layout and document of one dashboard. Revision
// grows by one with every committed change.
type DashboardState struct {
	Layout      *Layout
	Document    Document
	HasDocument bool
	Revision    uint64
	UpdatedAt   time.Time
}

// Messages returns the frames a freshly connected receiver needs, layout first.
// Receivers never resume from a patch offset, so this is always a full resync.
func (s *DashboardState) Messages() []DashboardRx {
	if s == nil {
		return nil
	}
	var out []DashboardRx
	if s.Layout != nil {
		out = append(out, LayoutMessage(*s.Layout))
	}
	if s.HasDocument {
		out = append(out, SnapshotMessage(s.Document))
	}
	return out
}

type stateRecord struct {
	Layout      *Layout         `json:"layout,omitempty"`
	HasDocument bool            `json:"hasDocument"`
	Document    json.RawMessage `json:"document,omitempty"`
	Revision    uint64          `json:"revision,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (s DashboardState) MarshalJSON() ([]byte, error) {
	rec := stateRecord{Layout: s.Layout, Revision: s.Revision, UpdatedAt: s.UpdatedAt.UTC()}
	if s.HasDocument {
		raw, err := json.Marshal(s.Document)
		if err != nil {
			return nil, err
		}
		rec.HasDocument = true
		rec.Document = raw
	}
	return json.Marshal(rec)
}

func (s *DashboardState) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode dashboard state: %w", err)
	}
	state := DashboardState{Layout: rec.Layout, Revision: rec.Revision, UpdatedAt: rec.UpdatedAt}
	if rec.HasDocument {
		doc, err := NewDocument(rec.Document)
		if err != nil {
			return err
		}
		state.Document = doc
		state.HasDocument = true
	}
	*s = state
	return nil
}

// Event is a broker record addressed to one dashboard.
type Event struct {
	Topic       string
	DashboardID string
	Message     DashboardRx
	Metadata    map[string]string
	Timestamp   time.Time
}

// Action is a resolved client Msg received by the server.
type Action struct {
	DashboardID  string          `json:"dashboardId"`
	ConnectionID string          `json:"connectionId"`
	UserID       string          `json:"userId,omitempty"`
	Template     json.RawMessage `json:"template"`
	ReceivedAt   time.Time       `json:"receivedAt"`
}

// NormalizeDashboardID trims and lowercases an id; ids are case-insensitive.
func NormalizeDashboardID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
