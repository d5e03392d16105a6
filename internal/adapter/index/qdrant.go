package index

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// Point IDs in Qdrant must be UUIDs or integers; document IDs are mapped
// through UUIDv5 in this namespace so re-ingestion still overwrites.
var qdrantIDNamespace = uuid.MustParse("7a1e51c4-9d3b-4f7e-8a2f-0c5b6d1e9a44")

const payloadKeyText = "text"
const payloadKeyDocID = "doc_id"

// QdrantConfig holds Qdrant connection configuration.
type QdrantConfig struct {
	URL        string
	Collection string
	APIKey     string
	Dimension  int
}

// QdrantIndex implements port.VectorIndex against a Qdrant server.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// OpenQdrant connects to Qdrant and ensures the collection exists with a
// cosine-distance vector space of the configured dimension.
func OpenQdrant(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", cfg.Dimension)
	}

	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(cfg.Dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("create collection: %w", err)
		}
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}, nil
}

// Upsert writes entries with wait semantics so acknowledged inserts
// survive a restart.
func (q *QdrantIndex) Upsert(ctx context.Context, entries []port.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, entry := range entries {
		if len(entry.Vector) != q.dimension {
			return &domain.DimensionMismatchError{Want: q.dimension, Got: len(entry.Vector)}
		}

		payload := map[string]any{
			payloadKeyDocID: entry.ID,
			payloadKeyText:  entry.Text,
		}
		for k, v := range entry.Metadata {
			payload[k] = v
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(qdrantIDNamespace, []byte(entry.ID)).String()),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// Query runs an ANN search ordered by cosine similarity. Qdrant already
// returns descending scores; ties are re-broken by document ID locally to
// keep ordering deterministic across backends.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int) ([]port.VectorHit, error) {
	if len(vector) != q.dimension {
		return nil, &domain.DimensionMismatchError{Want: q.dimension, Got: len(vector)}
	}

	count, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrIndexEmpty
	}
	if topK <= 0 {
		return []port.VectorHit{}, nil
	}
	if topK > count {
		topK = count
	}

	limit := uint64(topK)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	hits := make([]port.VectorHit, 0, len(points))
	for _, point := range points {
		hit := port.VectorHit{
			Score:    float64(point.Score),
			Metadata: make(map[string]string),
		}
		for k, v := range point.Payload {
			switch k {
			case payloadKeyDocID:
				hit.ID = v.GetStringValue()
			case payloadKeyText:
				hit.Text = v.GetStringValue()
			default:
				hit.Metadata[k] = v.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}

	sortHits(hits)

	return hits, nil
}

// Count returns the number of stored points.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(n), nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
