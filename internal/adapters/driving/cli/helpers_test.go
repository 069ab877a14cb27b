package cli

import (
	"bytes"
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medindex/internal/adapters/driven/fetch"
	"github.com/custodia-labs/medindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/core/services"
	"github.com/custodia-labs/medindex/internal/normalisers"
	"github.com/custodia-labs/medindex/internal/normalisers/plaintext"
	"github.com/custodia-labs/medindex/internal/postprocessors/chunker"
)

const testDims = 32

// hashEmbedder hashes words into buckets so texts sharing words are similar.
type hashEmbedder struct {
	err error
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (h *hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if h.err != nil {
		return nil, h.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, testDims)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(w))
			v[f.Sum32()%testDims]++
		}
		var sum float64
		for _, x := range v {
			sum += float64(x * x)
		}
		if sum == 0 {
			v[0], sum = 1, 1
		}
		norm := float32(math.Sqrt(sum))
		for j := range v {
			v[j] /= norm
		}
		out[i] = v
	}
	return out, nil
}

func (h *hashEmbedder) Dimensions() int              { return testDims }
func (h *hashEmbedder) ModelName() string            { return "hash" }
func (h *hashEmbedder) Ping(_ context.Context) error { return h.err }
func (h *hashEmbedder) Close() error                 { return nil }

// testServices holds the handles setupTestServices injected.
type testServices struct {
	store    *memory.VectorStore
	embedder *hashEmbedder
}

// setupTestServices wires the real services over an in-memory store and a
// deterministic embedder. It returns a cleanup restoring the previous state.
func setupTestServices() (*testServices, func()) {
	oldIndex, oldSearch, oldIngest := indexService, searchService, ingestService
	oldEmbedding, oldSettings, oldShutdown := embeddingService, settingsService, shutdown

	store := memory.NewVectorStore("test_records", testDims)
	embedder := &hashEmbedder{}
	indexer := services.NewIndexer(
		normalisers.NewRegistry(plaintext.New()),
		chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10)),
		embedder,
		store,
	)

	indexService = indexer
	searchService = services.NewQueryService(embedder, store)
	ingestService = services.NewIngestor(indexer, fetch.NewClient(fetch.Config{}))
	embeddingService = embedder
	settingsService = nil
	shutdown = nil

	return &testServices{store: store, embedder: embedder}, func() {
		indexService, searchService, ingestService = oldIndex, oldSearch, oldIngest
		embeddingService, settingsService, shutdown = oldEmbedding, oldSettings, oldShutdown
	}
}

// seedRecords indexes two patients' notes.
func seedRecords(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []struct {
		patient, recordType, text string
	}{
		{"P-1", "note", "Patient presents with chest pain radiating to the left arm"},
		{"P-2", "lab_result", "Hemoglobin A1c elevated at 8.1 percent, diabetic follow-up advised"},
	} {
		_, err := indexService.Index(ctx, domain.IndexRequest{
			Content:  []byte(rec.text),
			Filename: rec.patient + ".txt",
			Metadata: domain.RecordMetadata{PatientID: rec.patient, RecordType: rec.recordType},
		})
		require.NoError(t, err)
	}
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	return executeContext(context.Background(), args...)
}

func executeContext(ctx context.Context, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetCommands(rootCmd)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetCommands restores flag defaults and clears the context cobra caches
// on each subcommand. Cobra only passes the execute context to a subcommand
// without one, so a cancelled context would otherwise reach the next test.
func resetCommands(cmd *cobra.Command) {
	cmd.SetContext(nil) //nolint:staticcheck // nil lets the next ExecuteContext apply

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetCommands(c)
	}
}

var _ driven.EmbeddingService = (*hashEmbedder)(nil)

// captureOutput runs fn with the root command writing to a buffer.
func captureOutput(fn func() error) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	err := fn()
	return buf.String(), err
}
