package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/kart-io/memoryctl/internal/model"
)

// Payload field names. These are also the index's keyword-indexed
// scalar columns.
const (
	FieldType        = "type"
	FieldID          = "memory_id"
	FieldUserID      = "user_id"
	FieldTeamID      = "team_id"
	FieldVisibility  = "visibility"
	FieldGate        = "gate"
	FieldSensitivity = "sensitivity"
	FieldPerson      = "person"
	FieldProject     = "project"
	FieldDate        = "date"
	FieldRuleID      = "rule_id"
	FieldContent     = "content"
)

// TeamScopePrefix marks a synthetic team user_id ("team:<team_id>").
const TeamScopePrefix = "team:"

// ScopeFields derives the visibility/team_id pair every record's payload
// carries from its tenant user_id, so the Must/Should filter shape works
// uniformly across record types. Memories carry these explicitly; journal,
// identity and rule records get them from the user_id they are filed under.
func ScopeFields(userID string) (visibility, teamID string) {
	if t, ok := strings.CutPrefix(userID, TeamScopePrefix); ok {
		return string(model.VisibilityTeam), t
	}
	return string(model.VisibilityPrivate), ""
}

// MemoryToPayload flattens a Memory into the payload map the index stores.
// Edges are JSON-encoded into a single field: the index has no notion of
// a nested array type for an arbitrary payload schema, so sonic (the fast
// JSON codec the rest of this module's payload traffic uses) round-trips
// them.
func MemoryToPayload(m *model.Memory) (map[string]any, error) {
	edgesJSON, err := sonic.MarshalString(m.Edges)
	if err != nil {
		return nil, fmt.Errorf("encode edges: %w", err)
	}
	p := map[string]any{
		FieldType:        string(RecordMemory),
		FieldID:          m.ID,
		"created":        m.Created.UTC().Format(time.RFC3339Nano),
		"last_accessed":  m.LastAccessed.UTC().Format(time.RFC3339Nano),
		"access_count":   int64(m.AccessCount),
		FieldGate:        string(m.Gate),
		"decay_class":    string(m.DecayClass),
		"confidence":     m.Confidence,
		FieldContent:     m.Content,
		FieldPerson:      m.Person,
		FieldProject:     m.Project,
		"pinned":             m.Pinned,
		FieldSensitivity:     string(m.Sensitivity),
		"sensitivity_reason": m.SensReason,
		FieldVisibility:      string(m.Visibility),
		FieldTeamID:          m.TeamID,
		"created_by":         m.CreatedBy,
		"edges_json":         edgesJSON,
		FieldUserID:          m.UserID,
	}
	return p, nil
}

// MemoryFromPayload reconstructs a Memory from a stored payload map.
func MemoryFromPayload(p map[string]any) (*model.Memory, error) {
	m := &model.Memory{
		ID:          str(p[FieldID]),
		Gate:        model.Gate(str(p[FieldGate])),
		DecayClass:  model.DecayClass(str(p["decay_class"])),
		Confidence:  num(p["confidence"]),
		Content:     str(p[FieldContent]),
		Person:      str(p[FieldPerson]),
		Project:     str(p[FieldProject]),
		Pinned:      boolv(p["pinned"]),
		Sensitivity: model.Sensitivity(str(p[FieldSensitivity])),
		SensReason:  str(p["sensitivity_reason"]),
		Visibility:  model.Visibility(str(p[FieldVisibility])),
		TeamID:      str(p[FieldTeamID]),
		CreatedBy:   str(p["created_by"]),
		UserID:      str(p[FieldUserID]),
		AccessCount: int(num(p["access_count"])),
	}

	created, err := parseTime(str(p["created"]))
	if err != nil {
		return nil, fmt.Errorf("parse created: %w", err)
	}
	m.Created = created

	accessed := created
	if s := str(p["last_accessed"]); s != "" {
		accessed, err = parseTime(s)
		if err != nil {
			return nil, fmt.Errorf("parse last_accessed: %w", err)
		}
	}
	m.LastAccessed = accessed

	if edgesJSON := str(p["edges_json"]); edgesJSON != "" {
		if err := sonic.UnmarshalString(edgesJSON, &m.Edges); err != nil {
			return nil, fmt.Errorf("decode edges: %w", err)
		}
	}

	return m, nil
}

// JournalToPayload flattens a JournalEntry into a payload map.
func JournalToPayload(j *model.JournalEntry) map[string]any {
	visibility, teamID := ScopeFields(j.UserID)
	return map[string]any{
		FieldType:       string(RecordJournal),
		FieldID:         j.ID,
		"timestamp":     j.Timestamp.UTC().Format(time.RFC3339Nano),
		FieldGate:       string(j.Gate),
		FieldContent:    j.Content,
		FieldPerson:     j.Person,
		FieldProject:    j.Project,
		FieldDate:       j.Date,
		FieldUserID:     j.UserID,
		FieldVisibility: visibility,
		FieldTeamID:     teamID,
	}
}

// JournalFromPayload reconstructs a JournalEntry from a stored payload map.
func JournalFromPayload(p map[string]any) (*model.JournalEntry, error) {
	ts, err := parseTime(str(p["timestamp"]))
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &model.JournalEntry{
		ID:        str(p[FieldID]),
		Timestamp: ts,
		Gate:      model.Gate(str(p[FieldGate])),
		Content:   str(p[FieldContent]),
		Person:    str(p[FieldPerson]),
		Project:   str(p[FieldProject]),
		Date:      str(p[FieldDate]),
		UserID:    str(p[FieldUserID]),
	}, nil
}

// IdentityToPayload flattens an IdentityCard into a payload map.
func IdentityToPayload(c *model.IdentityCard) map[string]any {
	visibility, teamID := ScopeFields(c.UserID)
	return map[string]any{
		FieldType:       string(RecordIdentity),
		FieldPerson:     c.Person,
		FieldProject:    c.Project,
		FieldContent:    c.Content,
		"last_updated":  c.LastUpdated.UTC().Format(time.RFC3339Nano),
		FieldUserID:     c.UserID,
		FieldVisibility: visibility,
		FieldTeamID:     teamID,
	}
}

// IdentityFromPayload reconstructs an IdentityCard from a stored payload map.
func IdentityFromPayload(p map[string]any) (*model.IdentityCard, error) {
	ts, err := parseTime(str(p["last_updated"]))
	if err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}
	return &model.IdentityCard{
		Person:      str(p[FieldPerson]),
		Project:     str(p[FieldProject]),
		Content:     str(p[FieldContent]),
		LastUpdated: ts,
		UserID:      str(p[FieldUserID]),
	}, nil
}

// RuleToPayload flattens a Rule into a payload map.
func RuleToPayload(r *model.Rule) map[string]any {
	visibility, teamID := ScopeFields(r.UserID)
	p := map[string]any{
		FieldType:       string(RecordRule),
		FieldRuleID:     r.RuleID,
		"scope":         r.Scope,
		"condition":     r.Condition,
		"enforcement":   string(r.Enforcement),
		"created":       r.Created.UTC().Format(time.RFC3339Nano),
		FieldUserID:     r.UserID,
		FieldVisibility: visibility,
		FieldTeamID:     teamID,
	}
	if !r.LastTriggered.IsZero() {
		p["last_triggered"] = r.LastTriggered.UTC().Format(time.RFC3339Nano)
	}
	return p
}

// RuleFromPayload reconstructs a Rule from a stored payload map.
func RuleFromPayload(p map[string]any) (*model.Rule, error) {
	created, err := parseTime(str(p["created"]))
	if err != nil {
		return nil, fmt.Errorf("parse created: %w", err)
	}
	r := &model.Rule{
		RuleID:      str(p[FieldRuleID]),
		Scope:       str(p["scope"]),
		Condition:   str(p["condition"]),
		Enforcement: model.Enforcement(str(p["enforcement"])),
		Created:     created,
		UserID:      str(p[FieldUserID]),
	}
	if s := str(p["last_triggered"]); s != "" {
		lt, err := parseTime(s)
		if err != nil {
			return nil, fmt.Errorf("parse last_triggered: %w", err)
		}
		r.LastTriggered = lt
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func str(v any) string {
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func boolv(v any) bool {
	b, _ := v.(bool)
	return b
}
