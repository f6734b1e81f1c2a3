package commands

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readdScenario = `
name: delete and re-add
generations:
  - name: original
    types:
      - name: App.Program
        methods:
          - name: Print
            params:
              - { name: value, type: int }
          - name: Helper
            params:
              - { name: text, type: string }

  - name: delete Helper
    types:
      - name: App.Program
        methods:
          - name: Print
            params:
              - { name: value, type: int }
    edits:
      - { kind: delete, symbol: App.Program.Helper }
    expect:
      deleted: 1

  - name: insert Helper again
    types:
      - name: App.Program
        methods:
          - name: Print
            params:
              - { name: value, type: int }
          - name: Helper
            params:
              - { name: text, type: string }
    edits:
      - { kind: insert, symbol: App.Program.Helper }
    expect:
      status:
        App.Program.Helper: updated
      diagnostics: [ENC0004]
`

func TestApplyCommand(t *testing.T) {
	t.Run("has correct usage", func(t *testing.T) {
		cmd := NewApplyCommand(&globalFlags{})
		assert.Equal(t, "apply <scenario>", cmd.Use)
		assert.NotEmpty(t, cmd.Short)
		assert.NotEmpty(t, cmd.Long)
		assert.NotEmpty(t, cmd.Example)

		diffFlag := cmd.Flags().Lookup("diff")
		require.NotNil(t, diffFlag)
		assert.Equal(t, "false", diffFlag.DefValue)
	})

	t.Run("requires a scenario", func(t *testing.T) {
		_, _, err := execute(t, "apply")
		assert.Error(t, err)
	})
}

func TestApplyTable(t *testing.T) {
	path := writeScenario(t, readdScenario)

	stdout, stderr, err := execute(t, "apply", path, "--no-color")
	require.NoError(t, err, stderr)

	for _, expected := range []string{
		"original",
		"delete Helper",
		"No definitions changed",
		"insert Helper again",
		"App.Program.Helper",
		"updated",
		"ENC0004",
		"3 generation(s) applied",
	} {
		assert.Contains(t, stdout, expected)
	}
	assert.Empty(t, stderr)
}

func TestApplyDiff(t *testing.T) {
	path := writeScenario(t, readdScenario)

	stdout, _, err := execute(t, "apply", path, "--no-color", "--diff")
	require.NoError(t, err)

	assert.Contains(t, stdout, "--- original")
	assert.Contains(t, stdout, "+++ delete Helper")
	assert.Contains(t, stdout, "-deleted = 0")
	assert.Contains(t, stdout, "+deleted = 1")
}

func TestApplyJSON(t *testing.T) {
	path := writeScenario(t, readdScenario)

	stdout, _, err := execute(t, "apply", path, "--format", "json")
	require.NoError(t, err)

	var out sessionReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "delete and re-add", out.Scenario)
	require.Len(t, out.Generations, 3)
	assert.Empty(t, out.Failures)
	assert.Empty(t, out.Error)

	assert.Equal(t, 1, out.Generations[1].Deleted)
	last := out.Generations[2]
	require.Len(t, last.Diagnostics, 1)
	assert.Equal(t, "ENC0004", string(last.Diagnostics[0].Code))

	var helper *definitionRow
	for i := range last.Definitions {
		if last.Definitions[i].Path == "App.Program.Helper" {
			helper = &last.Definitions[i]
		}
	}
	require.NotNil(t, helper)
	assert.Equal(t, "updated", helper.Status)
}

func TestApplyReportsUnmetExpectations(t *testing.T) {
	doc := strings.Replace(readdScenario, "deleted: 1", "deleted: 2", 1)
	path := writeScenario(t, doc)

	stdout, _, err := execute(t, "apply", path, "--no-color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 expectation(s) not met")
	assert.Contains(t, stdout, "deleted members: want 2, got 1")
	assert.NotContains(t, stdout, "generation(s) applied")

	var reported errReported
	assert.True(t, errors.As(err, &reported))
}

func TestApplyInvalidScenario(t *testing.T) {
	path := writeScenario(t, "name: empty\n")

	_, stderr, err := execute(t, "apply", path, "--no-color")
	require.Error(t, err)
	assert.Contains(t, stderr, "INVALID SCENARIO")
}

func TestApplySuggestsSymbols(t *testing.T) {
	doc := strings.Replace(readdScenario, "{ kind: insert, symbol: App.Program.Helper }", "{ kind: insert, symbol: App.Program.Hepler }", 1)
	path := writeScenario(t, doc)

	stdout, stderr, err := execute(t, "apply", path, "--no-color")
	require.Error(t, err)
	assert.Contains(t, stderr, "SYMBOL NOT FOUND")
	assert.Contains(t, stderr, "Did you mean: App.Program.Helper?")

	// the generations committed before the failure are still shown
	assert.Contains(t, stdout, "delete Helper")
	assert.NotContains(t, stdout, "insert Helper again")
}
