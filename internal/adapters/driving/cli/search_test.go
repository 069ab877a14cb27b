package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search indexed records", searchCmd.Short)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	seedRecords(t)

	out, err := execute("search", "chest pain in left arm")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "patient P-1")
	assert.Contains(t, out, "radiating")
}

func TestSearchCmd_PatientFilter(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	seedRecords(t)

	out, err := execute("search", "--json", "--patient-id", "P-2", "chest pain")

	require.NoError(t, err)
	var results []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "P-2", results[0].Payload[domain.PayloadPatientID])
}

func TestSearchCmd_ExecutesWithShortLimitFlag(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	seedRecords(t)

	out, err := execute("search", "--json", "-n", "1", "hemoglobin")

	require.NoError(t, err)
	var results []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "P-2", results[0].Payload[domain.PayloadPatientID])
	assert.NotEmpty(t, results[0].PointID)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	seedRecords(t)

	out, err := execute("search", "--json", "test query")

	require.NoError(t, err)
	assert.Contains(t, out, `"pointId"`)
	assert.Contains(t, out, `"score"`)
	assert.Contains(t, out, `"payload"`)
}

func TestSearchCmd_EmptyQuery(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("search", "   ")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, exitInput, exitCode(err))
}

func TestSearchCmd_EmbeddingFailure(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.embedder.err = errors.New("model offline")

	_, err := execute("search", "test")

	require.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "search failed")
	assert.Equal(t, exitEmbedding, exitCode(err))
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	out, err := captureOutput(func() error {
		return outputSearchJSON(rootCmd, nil)
	})

	assert.NoError(t, err)
	assert.Contains(t, out, "[]")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	out, err := captureOutput(func() error {
		return outputSearchTable(rootCmd, []domain.SearchResult{})
	})

	assert.NoError(t, err)
	assert.Contains(t, out, "No results found")
}

func TestOutputSearchTable_WithTitle(t *testing.T) {
	results := []domain.SearchResult{
		{
			PointID: "doc-1-2",
			Score:   0.95,
			Payload: map[string]any{
				domain.PayloadDocumentID: "doc-1",
				domain.PayloadTitle:      "Discharge summary",
				domain.PayloadPatientID:  "P-9",
				domain.PayloadRecordType: "discharge",
				domain.PayloadChunkIndex: 2,
				domain.PayloadText:       "Discharged in stable condition",
			},
		},
	}

	out, err := captureOutput(func() error {
		return outputSearchTable(rootCmd, results)
	})

	assert.NoError(t, err)
	assert.Contains(t, out, "Discharge summary")
	assert.Contains(t, out, "0.95")
	assert.Contains(t, out, "patient P-9")
	assert.Contains(t, out, "discharge")
	assert.Contains(t, out, "chunk 2")
	assert.Contains(t, out, "stable condition")
}

func TestOutputSearchTable_WithoutTitle(t *testing.T) {
	results := []domain.SearchResult{
		{
			PointID: "doc-123-0",
			Score:   0.75,
			Payload: map[string]any{domain.PayloadDocumentID: "doc-123"},
		},
	}

	out, err := captureOutput(func() error {
		return outputSearchTable(rootCmd, results)
	})

	assert.NoError(t, err)
	assert.Contains(t, out, "doc-123")
	assert.Contains(t, out, "0.75")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("  a\nb   c ", 5))
	assert.Equal(t, "a b …", snippet("a b c d", 2))
	assert.Equal(t, "", snippet("", 3))
}
