package network

import (
	"context"
	"fmt"

	"fraudguard/internal/graph"

	"go.uber.org/zap"
)

// ExportBatchSize bounds the rows sent per UNWIND.
const ExportBatchSize = 500

const mergeUsersCypher = `
UNWIND $rows AS row
MERGE (u:User {userId: row.id})
SET u.name = row.name,
    u.email = row.email,
    u.transactionCount = row.transactionCount,
    u.totalSent = row.totalSent,
    u.totalReceived = row.totalReceived,
    u.avgRiskScore = row.avgRiskScore,
    u.highRiskCount = row.highRiskCount,
    u.knownRecipients = row.knownRecipients
`

const mergeEdgesCypher = `
UNWIND $rows AS row
MATCH (a:User {userId: row.source})
MATCH (b:User {userId: row.target})
MERGE (a)-[r:TRANSACTS_WITH]->(b)
SET r.count = row.count,
    r.totalAmount = row.totalAmount,
    r.avgAmount = row.avgAmount,
    r.avgRiskScore = row.avgRiskScore,
    r.frequency = row.frequency,
    r.isKnownPattern = row.isKnownPattern,
    r.generatedAt = row.generatedAt
`

// ExportResult totals what the graph database reported.
type ExportResult struct {
	Nodes         int
	Edges         int
	NodesCreated  int
	EdgesCreated  int
	PropertiesSet int
}

// Exporter writes a built graph into a graph database. Writes are MERGEs,
// so exporting the same graph twice leaves one copy.
type Exporter struct {
	client    graph.Client
	batchSize int
	logger    *zap.Logger
}

func NewExporter(client graph.Client, logger *zap.Logger) *Exporter {
	if client == nil {
		panic("graph client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{client: client, batchSize: ExportBatchSize, logger: logger}
}

// Export upserts every node and then every edge.
func (e *Exporter) Export(ctx context.Context, g *Graph) (ExportResult, error) {
	var res ExportResult
	if g == nil {
		return res, nil
	}

	nodeRows := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeRows = append(nodeRows, map[string]any{
			"id":               int64(n.ID),
			"name":             n.Name,
			"email":            n.Email,
			"transactionCount": int64(n.TransactionCount),
			"totalSent":        n.TotalSent.InexactFloat64(),
			"totalReceived":    n.TotalReceived.InexactFloat64(),
			"avgRiskScore":     n.AvgRiskScore,
			"highRiskCount":    int64(n.HighRiskCount),
			"knownRecipients":  n.KnownRecipients,
		})
	}
	if err := e.write(ctx, mergeUsersCypher, nodeRows, &res); err != nil {
		return res, fmt.Errorf("export nodes: %w", err)
	}
	res.Nodes = len(nodeRows)

	generatedAt := g.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	edgeRows := make([]map[string]any, 0, len(g.Edges))
	for _, ed := range g.Edges {
		edgeRows = append(edgeRows, map[string]any{
			"source":         int64(ed.Source),
			"target":         int64(ed.Target),
			"count":          int64(ed.Count),
			"totalAmount":    ed.TotalAmount.InexactFloat64(),
			"avgAmount":      ed.AvgAmount.InexactFloat64(),
			"avgRiskScore":   ed.AvgRiskScore,
			"frequency":      string(ed.Frequency),
			"isKnownPattern": ed.IsKnownPattern,
			"generatedAt":    generatedAt,
		})
	}
	if err := e.write(ctx, mergeEdgesCypher, edgeRows, &res); err != nil {
		return res, fmt.Errorf("export edges: %w", err)
	}
	res.Edges = len(edgeRows)

	e.logger.Info("network graph exported",
		zap.Int("nodes", res.Nodes),
		zap.Int("edges", res.Edges),
		zap.Int("nodes_created", res.NodesCreated),
		zap.Int("edges_created", res.EdgesCreated))
	return res, nil
}

func (e *Exporter) write(ctx context.Context, cypher string, rows []map[string]any, res *ExportResult) error {
	for start := 0; start < len(rows); start += e.batchSize {
		end := start + e.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := make([]any, 0, end-start)
		for _, r := range rows[start:end] {
			batch = append(batch, r)
		}
		sum, err := e.client.ExecuteWrite(ctx, cypher, map[string]any{"rows": batch})
		if err != nil {
			return err
		}
		res.NodesCreated += sum.NodesCreated
		res.EdgesCreated += sum.RelationshipsCreated
		res.PropertiesSet += sum.PropertiesSet
	}
	return nil
}
