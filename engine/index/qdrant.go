package index

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/askdocs/askdocs/engine/domain"
)

// QdrantOpener opens tenant indexes backed by Qdrant collections, one
// collection per tenant namespace. For deployments where the index must live
// on shared durable storage instead of the local filesystem.
type QdrantOpener struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	dimensions  int
}

// NewQdrantOpener connects to Qdrant at the given gRPC address.
func NewQdrantOpener(addr string, dimensions int) (*QdrantOpener, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("index: dial qdrant %s: %w", addr, err)
	}
	return &QdrantOpener{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		dimensions:  dimensions,
	}, nil
}

// Close closes the underlying gRPC connection.
func (o *QdrantOpener) Close() error { return o.conn.Close() }

// Open implements Opener: ensure the tenant's collection exists and return a
// handle scoped to it.
func (o *QdrantOpener) Open(ctx context.Context, tenantID string) (Index, error) {
	name := CollectionName(tenantID)
	if err := o.ensureCollection(ctx, name); err != nil {
		return nil, err
	}
	return &qdrantIndex{opener: o, collection: name}, nil
}

func (o *QdrantOpener) ensureCollection(ctx context.Context, name string) error {
	list, err := o.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("index: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return nil
		}
	}

	_, err = o.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(o.dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("index: create collection %s: %w", name, err)
	}
	return nil
}

// qdrantIndex is a tenant index stored as a dedicated Qdrant collection.
// Durability is Qdrant's responsibility; upserts use Wait so acknowledged
// writes are visible to subsequent searches.
type qdrantIndex struct {
	opener     *QdrantOpener
	collection string
}

func (q *qdrantIndex) Name() string { return q.collection }

// Close implements Index. The shared connection is owned by the opener.
func (q *qdrantIndex) Close() error { return nil }

func (q *qdrantIndex) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Vector},
				},
			},
			Payload: chunkPayload(r.Chunk),
		}
	}

	wait := true
	_, err := q.opener.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d points into %s: %v", domain.ErrIndexWrite, len(records), q.collection, err)
	}
	return nil
}

func (q *qdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = 1
	}
	resp, err := q.opener.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", domain.ErrIndexRead, q.collection, err)
	}

	results := make([]domain.ScoredChunk, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = domain.ScoredChunk{
			Chunk: chunkFromPayload(r.GetPayload()),
			Score: r.GetScore(),
		}
	}
	return results, nil
}

func chunkPayload(c domain.Chunk) map[string]*pb.Value {
	str := func(s string) *pb.Value {
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
	}
	return map[string]*pb.Value{
		"text":          str(c.Text),
		"tenant_id":     str(c.TenantID),
		"document_id":   str(c.DocumentID),
		"document_name": str(c.DocumentName),
		"chunk_index":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.ChunkIndex)}},
		"source_label":  str(c.SourceLabel),
	}
}

func chunkFromPayload(payload map[string]*pb.Value) domain.Chunk {
	var c domain.Chunk
	for k, v := range payload {
		switch k {
		case "text":
			c.Text = v.GetStringValue()
		case "tenant_id":
			c.TenantID = v.GetStringValue()
		case "document_id":
			c.DocumentID = v.GetStringValue()
		case "document_name":
			c.DocumentName = v.GetStringValue()
		case "chunk_index":
			c.ChunkIndex = int(v.GetIntegerValue())
		case "source_label":
			c.SourceLabel = v.GetStringValue()
		}
	}
	return c
}
