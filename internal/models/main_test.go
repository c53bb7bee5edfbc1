package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	running := Session{StartTime: start}
	assert.False(t, running.Finished())
	assert.Zero(t, running.Duration())

	done := Session{StartTime: start, EndTime: &end}
	assert.True(t, done.Finished())
	assert.Equal(t, 90*time.Minute, done.Duration())
}

func TestPendingDeletes(t *testing.T) {
	var p PendingDeletes
	assert.True(t, p.Empty())

	p.AddSession("s1")
	p.AddSession("s1")
	p.AddEvent("e1")
	p.AddEvent("e1")
	p.AddEvent("e2")

	assert.False(t, p.Empty())
	assert.Equal(t, []string{"s1"}, p.Sessions)
	assert.Equal(t, []string{"e1", "e2"}, p.Events)
}

func TestDatasetClone(t *testing.T) {
	end := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ds := Dataset{
		Settings: DefaultSettings(),
		EventTypes: []EventType{{
			ID:   "e1",
			Name: "Read",
			Goal: &Goal{Type: GoalPositive, Metric: MetricCount, Period: PeriodWeek, TargetValue: 3},
			Tags: []string{"books"},
		}},
		Sessions: []Session{{ID: "s1", EventID: "e1", EndTime: &end}},
		Revision: 7,
	}

	c := ds.Clone()
	require.Equal(t, ds, c)

	c.EventTypes[0].Goal.TargetValue = 10
	c.EventTypes[0].Tags[0] = "papers"
	*c.Sessions[0].EndTime = end.Add(time.Hour)
	c.Sessions[0].Note = "changed"

	assert.Equal(t, 3.0, ds.EventTypes[0].Goal.TargetValue)
	assert.Equal(t, "books", ds.EventTypes[0].Tags[0])
	assert.Equal(t, end, *ds.Sessions[0].EndTime)
	assert.Empty(t, ds.Sessions[0].Note)
}

func TestDatasetLookups(t *testing.T) {
	ds := Dataset{
		EventTypes: []EventType{{ID: "e1", Name: "Read"}, {ID: "e2", Name: "Run"}},
		Sessions: []Session{
			{ID: "s1", EventID: "e1"},
			{ID: "s2", EventID: "e2"},
			{ID: "s3", EventID: "e1"},
			{ID: "s4", EventID: "gone"},
		},
	}

	e, ok := ds.EventType("e2")
	assert.True(t, ok)
	assert.Equal(t, "Run", e.Name)
	_, ok = ds.EventType("missing")
	assert.False(t, ok)

	ids := func(ss []Session) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"s1", "s3"}, ids(ds.SessionsFor("e1")))
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(ds.SessionsFor("e1", "e2")))
	assert.Empty(t, ds.SessionsFor())
}

func TestSessionJSON(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Session{ID: "s1", EventID: "e1", StartTime: start})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","eventId":"e1","startTime":"2026-03-01T09:00:00Z","endTime":null}`, string(data))
}

func TestWriteBuilders(t *testing.T) {
	w, err := SetWrite(CollectionEventTypes, "e1", EventType{ID: "e1", Name: "Read"})
	require.NoError(t, err)
	assert.Equal(t, OpSet, w.Op)
	assert.Equal(t, "e1", w.ID)
	assert.Contains(t, string(w.Data), `"name":"Read"`)

	assert.Equal(t, Write{Collection: CollectionSessions, Op: OpTombstone, ID: "s1"}, TombstoneWrite(CollectionSessions, "s1"))
	assert.Equal(t, Write{Collection: CollectionSessions, Op: OpPurge, ID: "s1"}, PurgeWrite(CollectionSessions, "s1"))

	_, err = SetWrite(CollectionSettings, "", make(chan int))
	assert.Error(t, err)
}
