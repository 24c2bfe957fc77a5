package network

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fraudguard/internal/models"
	"fraudguard/internal/services/pattern"

	"github.com/shopspring/decimal"
)

// Builder aggregates transactions into a counterparty graph. It holds no
// per-build state and is safe for concurrent use.
type Builder struct {
	extractor *pattern.Extractor
	now       func() time.Time
}

// NewBuilder creates a builder. A nil extractor uses the default rules.
func NewBuilder(extractor *pattern.Extractor) *Builder {
	if extractor == nil {
		extractor = pattern.NewExtractor()
	}
	return &Builder{extractor: extractor, now: time.Now}
}

type nodeAcc struct {
	node    Node
	user    *models.User
	riskSum float64
}

type edgeAcc struct {
	edge    Edge
	riskSum float64
}

// Build computes the graph for the given directory and transactions. The
// inputs are not modified. ctx only bounds the run.
func (b *Builder) Build(ctx context.Context, users []models.User, txns []models.Transaction) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	directory := make([]models.User, len(users))
	copy(directory, users)
	sort.Slice(directory, func(i, j int) bool { return directory[i].ID < directory[j].ID })

	f := newFolder()
	res := newResolver(directory, f)

	ordered := make([]*models.Transaction, len(txns))
	for i := range txns {
		ordered[i] = &txns[i]
	}
	// chronological so edge transaction lists read oldest first
	sort.SliceStable(ordered, func(i, j int) bool {
		a, c := ordered[i], ordered[j]
		if !a.Timestamp.Equal(c.Timestamp) {
			return a.Timestamp.Before(c.Timestamp)
		}
		return a.ID < c.ID
	})

	nodes := make(map[uint]*nodeAcc, len(directory))
	for i := range directory {
		u := &directory[i]
		nodes[u.ID] = &nodeAcc{user: u, node: newNode(u.ID, u.Name, u.Email)}
	}
	nodeFor := func(id uint) *nodeAcc {
		n, ok := nodes[id]
		if !ok {
			n = &nodeAcc{node: newNode(id, "", "")}
			nodes[id] = n
		}
		return n
	}

	history := make(map[uint][]*models.Transaction)
	for i := len(ordered) - 1; i >= 0; i-- {
		tx := ordered[i]
		history[tx.UserID] = append(history[tx.UserID], tx)
	}
	profiles := make(map[uint]*Profile, len(history))
	for uid, h := range history {
		profiles[uid] = buildProfile(uid, h, b.extractor, f)
	}

	edges := make(map[string]*edgeAcc)
	summary := Summary{TotalAmount: decimal.Zero}
	var riskSum float64

	for i, tx := range ordered {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		score := tx.RiskScoreOrZero()
		owner := nodeFor(tx.UserID)
		owner.node.TransactionCount++
		owner.riskSum += score
		if score > HighRiskScore {
			owner.node.HighRiskCount++
			summary.HighRiskTransactions++
		}
		switch tx.Type {
		case models.TransactionTypeTransfer:
			owner.node.TotalSent = owner.node.TotalSent.Add(tx.Amount)
		case models.TransactionTypeIncome:
			owner.node.TotalReceived = owner.node.TotalReceived.Add(tx.Amount)
		}

		summary.TotalTransactions++
		summary.TotalAmount = summary.TotalAmount.Add(tx.Amount)
		riskSum += score

		m, ok := b.extractor.Extract(tx.Description)
		if !ok {
			continue
		}
		cp, ok := res.resolve(m.Value)
		if !ok || cp.ID == tx.UserID {
			continue
		}
		summary.ResolvedTransactions++

		if tx.Type.IsOutflow() {
			peer := nodeFor(cp.ID)
			peer.node.TotalReceived = peer.node.TotalReceived.Add(tx.Amount)
		}

		source, target := canonicalPair(tx.UserID, cp.ID)
		key := EdgeKey(source, target)
		e, ok := edges[key]
		if !ok {
			e = &edgeAcc{edge: Edge{
				Key:          key,
				Source:       source,
				Target:       target,
				TotalAmount:  decimal.Zero,
				Transactions: []EdgeTransaction{},
			}}
			edges[key] = e
		}
		e.edge.Count++
		e.edge.TotalAmount = e.edge.TotalAmount.Add(tx.Amount)
		e.riskSum += score
		e.edge.Transactions = append(e.edge.Transactions, EdgeTransaction{
			ID:        tx.ID,
			Reference: tx.Reference,
			UserID:    tx.UserID,
			Amount:    tx.Amount,
			Type:      tx.Type,
			Status:    tx.Status,
			RiskScore: tx.RiskScore,
			Timestamp: tx.Timestamp,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := &Graph{
		Nodes:       make([]Node, 0, len(nodes)),
		Edges:       make([]Edge, 0, len(edges)),
		GeneratedAt: b.now().UTC(),
	}

	for id, n := range nodes {
		if n.node.TransactionCount > 0 {
			n.node.AvgRiskScore = round2(n.riskSum / float64(n.node.TransactionCount))
		}
		if p, ok := profiles[id]; ok {
			n.node.KnownRecipients = p.KnownRecipients
			n.node.CommonAmounts = p.CommonAmounts
		}
		g.Nodes = append(g.Nodes, n.node)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })

	for _, e := range edges {
		count := decimal.NewFromInt(int64(e.edge.Count))
		e.edge.AvgAmount = e.edge.TotalAmount.DivRound(count, 2)
		e.edge.AvgRiskScore = round2(e.riskSum / float64(e.edge.Count))
		e.edge.Frequency = FrequencyFor(e.edge.Count)

		src, dst := nodes[e.edge.Source], nodes[e.edge.Target]
		e.edge.IsKnownPattern = profiles[e.edge.Source].knows(dst.user, f) ||
			profiles[e.edge.Target].knows(src.user, f)
		if e.edge.IsKnownPattern {
			summary.KnownPatternEdges++
		}
		g.Edges = append(g.Edges, e.edge)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})

	summary.TotalNodes = len(g.Nodes)
	summary.TotalEdges = len(g.Edges)
	if summary.TotalTransactions > 0 {
		summary.AvgRiskScore = round2(riskSum / float64(summary.TotalTransactions))
	}
	g.Summary = summary

	return g, nil
}

// EdgeKey is the canonical key for the unordered pair (a, b).
func EdgeKey(a, b uint) string {
	a, b = canonicalPair(a, b)
	return fmt.Sprintf("%d-%d", a, b)
}

func canonicalPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

func newNode(id uint, name, email string) Node {
	return Node{
		ID:              id,
		Name:            name,
		Email:           email,
		TotalSent:       decimal.Zero,
		TotalReceived:   decimal.Zero,
		KnownRecipients: []string{},
		CommonAmounts:   []decimal.Decimal{},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
