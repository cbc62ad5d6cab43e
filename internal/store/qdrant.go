package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tradescan/marketscout/internal/market"
)

// QdrantMarketStore implements MarketStore using Qdrant over gRPC.
type QdrantMarketStore struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
}

// NewQdrant creates a Qdrant-backed market store.
func NewQdrant(ctx context.Context, host string, port int, collection string) (*QdrantMarketStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantMarketStore{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

// pointID derives a stable UUID from a platform market id, which is an
// arbitrary string Qdrant would reject as a point id.
func pointID(marketID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(marketID)).String()
}

func (s *QdrantMarketStore) UpsertMarkets(ctx context.Context, markets []market.Market, vectors [][]float32) error {
	if len(markets) != len(vectors) {
		return fmt.Errorf("markets/vectors length mismatch: %d vs %d", len(markets), len(vectors))
	}

	points := make([]*pb.PointStruct, 0, len(markets))
	for i, m := range markets {
		if len(vectors[i]) == 0 {
			// Embedding unavailable; the market stays unindexed.
			continue
		}
		payload := map[string]*pb.Value{
			"market_id": {Kind: &pb.Value_StringValue{StringValue: m.ID}},
			"platform":  {Kind: &pb.Value_StringValue{StringValue: m.Platform}},
			"title":     {Kind: &pb.Value_StringValue{StringValue: m.Title}},
		}
		if !m.EndDate.IsZero() {
			payload["end_date"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: m.EndDate.Format(time.RFC3339)}}
		}
		points = append(points, &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(m.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
			Payload: payload,
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	return err
}

func (s *QdrantMarketStore) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]MarketHit, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	hits := make([]MarketHit, len(resp.Result))
	for i, pt := range resp.Result {
		m := market.Market{}
		for k, v := range pt.Payload {
			switch k {
			case "market_id":
				m.ID = v.GetStringValue()
			case "platform":
				m.Platform = v.GetStringValue()
			case "title":
				m.Title = v.GetStringValue()
			case "end_date":
				if ts, err := time.Parse(time.RFC3339, v.GetStringValue()); err == nil {
					m.EndDate = ts
				}
			}
		}
		hits[i] = MarketHit{Market: m, Score: float64(pt.Score)}
	}
	return hits, nil
}

func (s *QdrantMarketStore) CountEmbedded(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (s *QdrantMarketStore) Close() error {
	return s.conn.Close()
}

var _ MarketStore = (*QdrantMarketStore)(nil)
