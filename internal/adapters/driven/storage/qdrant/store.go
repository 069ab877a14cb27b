// Package qdrant implements driven.VectorStore over the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/medindex/internal/adapters/driven/storage"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// pointNamespace derives Qdrant point ids. Qdrant only accepts unsigned
// integers or UUIDs, so "{documentId}-{chunkIndex}" is mapped to a UUIDv5 and
// kept verbatim in the pointId payload field.
var pointNamespace = uuid.MustParse("6f1d3c3e-5b0a-4c8e-9a57-2d8f1e0b7c41")

// indexedFields get keyword payload indexes so filtered search and
// per-document deletes stay fast.
var indexedFields = []string{domain.PayloadPatientID, domain.PayloadDocumentID}

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint (e.g., http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name.
	Collection string

	// Dimension is the vector size new collections are created with.
	Dimension int

	// Timeout bounds each request.
	Timeout time.Duration
}

// Store is a REST client for one Qdrant collection.
type Store struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimension  int

	mu      sync.Mutex
	ensured bool
}

// NewStore creates a Qdrant store. No request is made until EnsureCollection.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant collection is required", domain.ErrInvalidInput)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}, nil
}

// WirePointID returns the Qdrant id used for a logical point id.
func WirePointID(pointID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(pointID)).String()
}

// ==================== Wire types ====================

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type collectionResult struct {
	PointsCount int `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors json.RawMessage `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type wirePoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type match struct {
	Value any `json:"value"`
}

type rangeCond struct {
	GTE *int `json:"gte,omitempty"`
}

type condition struct {
	Key   string     `json:"key"`
	Match *match     `json:"match,omitempty"`
	Range *rangeCond `json:"range,omitempty"`
}

type filter struct {
	Must []condition `json:"must"`
}

// statusError is a non-2xx response.
type statusError struct {
	method string
	path   string
	code   int
	msg    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s: status %d: %s", e.method, e.path, e.code, e.msg)
}

// ==================== VectorStore ====================

// EnsureCollection creates the collection with the configured dimension and
// cosine distance if it is absent, and verifies the shape of an existing one.
// Success is cached for the lifetime of the store.
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	if s.dimension <= 0 {
		return fmt.Errorf("%w: collection %s has no dimension", domain.ErrSchema, s.collection)
	}

	info, err := s.collectionInfo(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		switch err = s.createCollection(ctx); {
		case err == nil:
			info = domain.CollectionInfo{Name: s.collection, Dimension: s.dimension, Distance: domain.DistanceCosine}
		case errors.Is(err, errCollectionExists):
			// Another process created it first; its shape may differ.
			info, err = s.collectionInfo(ctx)
		}
	}
	if err != nil {
		return err
	}
	if err := s.checkShape(info); err != nil {
		return err
	}

	s.ensureIndexes(ctx)
	s.ensured = true
	return nil
}

// errCollectionExists reports a 409 from create: the collection appeared
// between the lookup and the create.
var errCollectionExists = errors.New("collection already exists")

func (s *Store) checkShape(info domain.CollectionInfo) error {
	if info.Dimension != s.dimension || !strings.EqualFold(string(info.Distance), string(domain.DistanceCosine)) {
		return fmt.Errorf("%w: collection %s is %d/%s, embedder needs %d/%s",
			domain.ErrSchema, s.collection, info.Dimension, info.Distance, s.dimension, domain.DistanceCosine)
	}
	return nil
}

func (s *Store) createCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": vectorParams{Size: s.dimension, Distance: string(domain.DistanceCosine)},
	}
	err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return errCollectionExists
	}
	if err != nil {
		return classify(err, domain.ErrSchema)
	}
	logger.Info("qdrant: created collection %s (dim %d, cosine)", s.collection, s.dimension)
	return nil
}

// ensureIndexes creates keyword payload indexes. Filtering works without
// them, so failures are only logged.
func (s *Store) ensureIndexes(ctx context.Context) {
	for _, field := range indexedFields {
		body := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := s.do(ctx, http.MethodPut, s.collectionPath("/index?wait=true"), body, nil); err != nil {
			logger.Warn("qdrant: payload index on %s: %v", field, err)
		}
	}
}

// Upsert writes all points in one request and waits for them to be applied.
func (s *Store) Upsert(ctx context.Context, points []domain.Point) error {
	if err := storage.ValidatePoints(points, s.dimension); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	wire := make([]wirePoint, len(points))
	for i, p := range points {
		payload := storage.CopyPayload(p.Payload)
		if payload == nil {
			payload = make(map[string]any, 1)
		}
		payload[domain.PayloadPointID] = p.ID
		wire[i] = wirePoint{ID: WirePointID(p.ID), Vector: p.Vector, Payload: payload}
	}

	err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": wire}, nil)
	if err != nil {
		return classify(err, domain.ErrSchema)
	}
	return nil
}

// Search runs a filtered nearest-neighbour query. The filter is evaluated
// by Qdrant inside the HNSW traversal, so limit counts matching points only.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, f *domain.Filter) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrSchema, len(vector), s.dimension)
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f != nil {
		body["filter"] = filter{Must: []condition{{Key: f.Field, Match: &match{Value: f.Value}}}}
	}

	var hits []scoredPoint
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), body, &hits); err != nil {
		return nil, classify(err, domain.ErrInvalidInput)
	}

	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		id, _ := h.Payload[domain.PayloadPointID].(string)
		if id == "" {
			id = fmt.Sprint(h.ID)
		}
		results[i] = domain.SearchResult{PointID: id, Score: h.Score, Payload: h.Payload}
	}
	return results, nil
}

// DeleteDocument removes every point of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	return s.deleteByFilter(ctx, filter{Must: []condition{
		{Key: domain.PayloadDocumentID, Match: &match{Value: documentID}},
	}})
}

// PruneDocument removes the document's points with chunkIndex >= keep.
func (s *Store) PruneDocument(ctx context.Context, documentID string, keep int) error {
	return s.deleteByFilter(ctx, filter{Must: []condition{
		{Key: domain.PayloadDocumentID, Match: &match{Value: documentID}},
		{Key: domain.PayloadChunkIndex, Range: &rangeCond{GTE: &keep}},
	}})
}

func (s *Store) deleteByFilter(ctx context.Context, f filter) error {
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": f}, nil)
	if err != nil {
		return classify(err, domain.ErrInvalidInput)
	}
	return nil
}

// Info describes the collection.
func (s *Store) Info(ctx context.Context) (domain.CollectionInfo, error) {
	return s.collectionInfo(ctx)
}

func (s *Store) collectionInfo(ctx context.Context) (domain.CollectionInfo, error) {
	info := domain.CollectionInfo{Name: s.collection}

	var res collectionResult
	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &res)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return info, fmt.Errorf("collection %s: %w", s.collection, domain.ErrNotFound)
	}
	if err != nil {
		return info, classify(err, domain.ErrStoreUnavailable)
	}

	// Named-vector collections carry a map instead of a single params object.
	var params vectorParams
	if err := json.Unmarshal(res.Config.Params.Vectors, &params); err != nil || params.Size == 0 {
		return info, fmt.Errorf("%w: collection %s does not use a single unnamed vector", domain.ErrSchema, s.collection)
	}

	info.Dimension = params.Size
	info.Distance = domain.Distance(params.Distance)
	info.PointCount = res.PointsCount
	return info, nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// ==================== Transport ====================

func (s *Store) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// do sends a JSON request and decodes the result field of the response
// envelope into out.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", domain.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: read response: %v", domain.ErrStoreUnavailable, method, path, err)
	}

	if resp.StatusCode >= 300 {
		return &statusError{method: method, path: path, code: resp.StatusCode, msg: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: qdrant %s %s: decode response: %v", domain.ErrStoreUnavailable, method, path, err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: qdrant %s %s: decode result: %v", domain.ErrStoreUnavailable, method, path, err)
	}
	return nil
}

// errorMessage extracts status.error from an error envelope.
func errorMessage(data []byte) string {
	var env struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Status.Error != "" {
		return env.Status.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 256 {
		msg = msg[:256] + "..."
	}
	return msg
}

// classify maps a transport or status failure to the error taxonomy.
// 5xx and 429 mean the store is unavailable; any other 4xx is a client
// problem of kind clientErr.
func classify(err error, clientErr error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	if se.code >= 500 || se.code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, se)
	}
	return fmt.Errorf("%w: %v", clientErr, se)
}
