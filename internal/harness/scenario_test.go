package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
setup:
  - key: note_keys
    value: '[]'
flow:
  - op: create
    content: "Session notes"
    emotion: Calm
  - op: update
    id: note-1
    status: analyzed
    annotation: Calm
    faults:
      - kind: set
        key: note_note-1
        cause: REMOTE
        stage: confirm
    expect:
      error: write
assertions:
  - type: records
    ids: [note-1]
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Setup, 1)
	assert.Len(t, scenario.Flow, 2)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, OpCreate, scenario.Flow[0].Op)
	assert.Equal(t, "Session notes", scenario.Flow[0].Content)

	update := scenario.Flow[1]
	require.NotNil(t, update.Annotation)
	assert.Equal(t, "Calm", *update.Annotation)
	require.Len(t, update.Faults, 1)
	assert.Equal(t, "confirm", update.Faults[0].Stage)
	require.NotNil(t, update.Expect)
	assert.Equal(t, KindWrite, update.Expect.Error)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	content := `
name: typo
description: "misspelled assertions key"
flow:
  - op: reload
assertion:
  - type: records
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nflow:\n  - op: reload\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nflow:\n  - op: reload\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\n",
			wantErr: "flow list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nflow:\n  - op: delete\n    id: a\n",
			wantErr: `unknown op "delete"`,
		},
		{
			name:    "create without content",
			content: "name: n\ndescription: d\nflow:\n  - op: create\n",
			wantErr: "create requires content",
		},
		{
			name:    "archive without id",
			content: "name: n\ndescription: d\nflow:\n  - op: archive\n",
			wantErr: "archive requires id",
		},
		{
			name:    "update without patch",
			content: "name: n\ndescription: d\nflow:\n  - op: update\n    id: a\n",
			wantErr: "update requires status or annotation",
		},
		{
			name:    "update with unknown status",
			content: "name: n\ndescription: d\nflow:\n  - op: update\n    id: a\n    status: deleted\n",
			wantErr: `unknown status "deleted"`,
		},
		{
			name:    "set_available without value",
			content: "name: n\ndescription: d\nflow:\n  - op: set_available\n",
			wantErr: "set_available requires available",
		},
		{
			name:    "unknown fault kind",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\n    faults:\n      - kind: drop\n        key: k\n",
			wantErr: `unknown fault kind "drop"`,
		},
		{
			name:    "unknown cause",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\n    faults:\n      - kind: set\n        key: k\n        cause: GONE\n",
			wantErr: `unknown cause "GONE"`,
		},
		{
			name:    "unknown stage",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\n    faults:\n      - kind: set\n        key: k\n        stage: later\n",
			wantErr: `unknown stage "later"`,
		},
		{
			name:    "unknown error kind",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\n    expect:\n      error: boom\n",
			wantErr: `unknown error kind "boom"`,
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\nassertions:\n  - type: trace_contains\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "record assertion without id",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\nassertions:\n  - type: record\n",
			wantErr: "record assertion requires id",
		},
		{
			name:    "state count with unknown state",
			content: "name: n\ndescription: d\nflow:\n  - op: reload\nassertions:\n  - type: state_count\n    state: done\n",
			wantErr: `unknown state "done"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_CheckedInScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, filepath.Base(path), scenario.Name+".yaml", "scenario name must match file name")
		})
	}
}
