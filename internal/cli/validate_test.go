package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validateResponse struct {
	Status string           `json:"status"`
	Data   ValidationResult `json:"data"`
	Error  *CLIError        `json:"error"`
}

func TestValidateCatalog(t *testing.T) {
	_, catalogPath, _ := plotFixture(t)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Validation passed")
}

func TestValidateCatalogJSON(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), BuiltinSurface)
	require.NoError(t, err)

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "surface", resp.Data.Catalog)
}

func TestValidateCatalogErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `
types: N: {kind: "number", min: 5, max: 1}
genes: x: {type: "N", method: "noGroup"}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E102")
	assert.Contains(t, out, "E115")
	assert.Contains(t, err.Error(), "2 error(s)")
}

func TestValidateNonExistent(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/catalog.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidateWorksheet(t *testing.T) {
	_, catalogPath, worksheetPath := plotFixture(t)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), catalogPath, "--worksheet", worksheetPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Validation passed")
}

func TestValidateWorksheetInvalidInputs(t *testing.T) {
	dir, catalogPath, _ := plotFixture(t)
	ws := writeFile(t, dir, "bad.hcl", `
select = ["plot.area"]

input "plot.length" {
  values = [10, -1, -2]
}

input "plot.width" {
  values = [5]
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), catalogPath, "-w", ws)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Inputs, 2)
	assert.Equal(t, "plot.length", resp.Data.Inputs[0].Node)
	assert.Equal(t, 1, resp.Data.Inputs[0].Position)
	assert.Equal(t, 2, resp.Data.Inputs[1].Position)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "plot.length[1]")
}

func TestValidateWorksheetUnknownNode(t *testing.T) {
	dir, catalogPath, _ := plotFixture(t)
	ws := writeFile(t, dir, "unknown.hcl", `select = ["plot.volume"]`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), catalogPath, "-w", ws)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeGraph)
	assert.Contains(t, out, "plot.volume")
}

func TestValidateWorksheetMissing(t *testing.T) {
	_, catalogPath, _ := plotFixture(t)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), catalogPath, "-w", "/nonexistent.hcl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeWorksheet)
}
