package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotsScenario = filepath.Join("..", "..", "scenario", "testdata", "slots.yaml")

func TestInspectCommand(t *testing.T) {
	cmd := NewInspectCommand(&globalFlags{})
	assert.Equal(t, "inspect <scenario>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotEmpty(t, cmd.Example)

	generationFlag := cmd.Flags().Lookup("generation")
	require.NotNil(t, generationFlag)
	assert.Equal(t, "-1", generationFlag.DefValue)
}

func TestInspectTable(t *testing.T) {
	stdout, stderr, err := execute(t, "inspect", slotsScenario, "--no-color", "--generation", "1")
	require.NoError(t, err, stderr)

	for _, expected := range []string{
		"Scenario:",
		"hoisted variable slots",
		"box holds a new anonymous type",
		"Definitions",
		"App.Program.RunAsync",
		"Anonymous types",
		"{X, Y}",
		"State machines",
		"[2 1]",
	} {
		assert.Contains(t, stdout, expected)
	}
}

func TestInspectJSON(t *testing.T) {
	stdout, _, err := execute(t, "inspect", slotsScenario, "--format", "json")
	require.NoError(t, err)

	var r generationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &r))
	assert.Equal(t, 3, r.Ordinal)
	assert.Equal(t, "no edits", r.Label)
	assert.Equal(t, []int{3, 1}, r.Slots["App.Program.RunAsync"])
	assert.Equal(t, map[string]int{"{X}": 0, "{X, Y}": 1}, r.Anonymous)
	assert.Empty(t, r.changed())
}

func TestInspectOriginal(t *testing.T) {
	stdout, _, err := execute(t, "inspect", slotsScenario, "--format", "json", "--generation", "0")
	require.NoError(t, err)

	var r generationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &r))
	assert.Equal(t, 0, r.Ordinal)
	assert.Equal(t, []int{0, 1}, r.Slots["App.Program.RunAsync"])
	for _, d := range r.Definitions {
		assert.Equal(t, "unchanged", d.Status, d.Path)
	}
}

func TestInspectGenerationOutOfRange(t *testing.T) {
	_, _, err := execute(t, "inspect", slotsScenario, "--generation", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 4 generation(s)")
}
