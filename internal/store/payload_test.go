package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/memoryctl/internal/model"
)

func TestMemoryPayloadRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &model.Memory{
		ID:           "mem_20260301120000_ab12",
		Created:      now,
		LastAccessed: now,
		AccessCount:  3,
		Gate:         model.GateRelational,
		DecayClass:   model.DecaySlow,
		Confidence:   0.9,
		Content:      "prefers tabs over spaces",
		Person:       "alex",
		Pinned:       true,
		Sensitivity:  model.SensitivitySafe,
		Visibility:   model.VisibilityPrivate,
		CreatedBy:    "alex",
		Edges: []model.Edge{
			{ToID: "mem_other", Relation: model.RelationFollows},
		},
		UserID: "alex",
	}

	payload, err := MemoryToPayload(m)
	require.NoError(t, err)
	assert.Equal(t, string(RecordMemory), payload[FieldType])

	back, err := MemoryFromPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, m.Gate, back.Gate)
	assert.Equal(t, m.DecayClass, back.DecayClass)
	assert.Equal(t, m.Confidence, back.Confidence)
	assert.Equal(t, m.Content, back.Content)
	assert.Equal(t, m.Pinned, back.Pinned)
	assert.True(t, m.Created.Equal(back.Created))
	assert.True(t, m.LastAccessed.Equal(back.LastAccessed))
	require.Len(t, back.Edges, 1)
	assert.Equal(t, "mem_other", back.Edges[0].ToID)
	assert.Equal(t, model.RelationFollows, back.Edges[0].Relation)
}

func TestMemoryPayloadRoundTrip_NoEdges(t *testing.T) {
	now := time.Now().UTC()
	m := &model.Memory{
		ID:         "mem_x",
		Created:    now,
		Gate:       model.GateBehavioral,
		DecayClass: model.DecayFast,
		Visibility: model.VisibilityPrivate,
		UserID:     "u1",
	}
	payload, err := MemoryToPayload(m)
	require.NoError(t, err)

	back, err := MemoryFromPayload(payload)
	require.NoError(t, err)
	assert.Empty(t, back.Edges)
}

func TestJournalPayloadRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	j := &model.JournalEntry{
		ID:        "jrn_1",
		Timestamp: now,
		Gate:      model.GateCheckpoint,
		Content:   "session handoff",
		Date:      "2026-03-02",
		UserID:    "u1",
	}
	payload := JournalToPayload(j)
	assert.Equal(t, string(RecordJournal), payload[FieldType])

	back, err := JournalFromPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, j.ID, back.ID)
	assert.Equal(t, j.Gate, back.Gate)
	assert.Equal(t, j.Date, back.Date)
	assert.True(t, j.Timestamp.Equal(back.Timestamp))
}

func TestRulePayloadRoundTrip_NoLastTriggered(t *testing.T) {
	r := &model.Rule{
		RuleID:      "rule_1",
		Scope:       model.DefaultScope,
		Condition:   "mentions password",
		Enforcement: model.EnforcementBlock,
		Created:     time.Now().UTC(),
		UserID:      "u1",
	}
	payload := RuleToPayload(r)
	_, hasLastTriggered := payload["last_triggered"]
	assert.False(t, hasLastTriggered)

	back, err := RuleFromPayload(payload)
	require.NoError(t, err)
	assert.True(t, back.LastTriggered.IsZero())
	assert.Equal(t, r.Enforcement, back.Enforcement)
}

func TestIdentityPayloadRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	c := &model.IdentityCard{
		Person:      "alex",
		Content:     "senior engineer, prefers terse prose",
		LastUpdated: now,
		UserID:      "alex",
	}
	payload := IdentityToPayload(c)
	back, err := IdentityFromPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, c.Person, back.Person)
	assert.Equal(t, c.Content, back.Content)
	assert.True(t, c.LastUpdated.Equal(back.LastUpdated))
}
