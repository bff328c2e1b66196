package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/store"
)

// seedAssessments scores and saves peopleJSONL, returning what was saved.
func seedAssessments(t *testing.T) []model.Assessment {
	t.Helper()
	_, _, err := execCmd(t, batchCmd, peopleJSONL, map[string]string{
		"input-format": "jsonl",
		"format":       "json",
		"save":         "true",
	})
	require.NoError(t, err)

	as, err := openTestStore(t).ListAssessments(context.Background(), store.AssessmentFilter{})
	require.NoError(t, err)
	require.Len(t, as, 3)
	return as
}

func TestAssessmentsList(t *testing.T) {
	useTestConfig(t)
	seedAssessments(t)

	out, _, err := execCmd(t, assessmentsListCmd, "", map[string]string{"format": "json"})
	require.NoError(t, err)

	var as []model.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &as))
	assert.Len(t, as, 3)
}

func TestAssessmentsList_Filters(t *testing.T) {
	useTestConfig(t)
	seedAssessments(t)

	tests := []struct {
		name  string
		flags map[string]string
		want  int
	}{
		{"record", map[string]string{"record": "p-2"}, 1},
		{"limit", map[string]string{"limit": "2"}, 2},
		{"offset", map[string]string{"offset": "2"}, 1},
		{"since", map[string]string{"since": "1h"}, 3},
		{"query without matches", map[string]string{"query": "nobody"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.flags["format"] = "json"
			out, _, err := execCmd(t, assessmentsListCmd, "", tt.flags)
			require.NoError(t, err)

			var as []model.Assessment
			require.NoError(t, json.Unmarshal([]byte(out), &as))
			assert.Len(t, as, tt.want)
		})
	}
}

func TestAssessmentsList_EmptyTable(t *testing.T) {
	useTestConfig(t)

	out, _, err := execCmd(t, assessmentsListCmd, "", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAssessmentsShow(t *testing.T) {
	useTestConfig(t)
	as := seedAssessments(t)

	out, _, err := execCmd(t, assessmentsShowCmd, "", nil, as[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, as[0].ID)
	assert.Contains(t, out, "Source trust:")

	out, _, err = execCmd(t, assessmentsShowCmd, "", map[string]string{"format": "json"}, as[0].ID)
	require.NoError(t, err)

	var got model.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, as[0].ID, got.ID)
	assert.InDelta(t, as[0].DISOption1, got.DISOption1, 1e-9)
	assert.WithinDuration(t, as[0].CreatedAt, got.CreatedAt, time.Second)
}

func TestAssessmentsShow_NotFound(t *testing.T) {
	useTestConfig(t)

	_, _, err := execCmd(t, assessmentsShowCmd, "", nil, "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assessment with id missing-id")
}

func TestAssessmentsCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range assessmentsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
