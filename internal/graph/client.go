// Package graph wraps the graph database used as an optional export target
// for the counterparty network.
package graph

import (
	"context"
	"errors"

	"fraudguard/internal/config"
)

// Client is the subset of graph database behaviour the exporter needs.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Summary, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Summary reports what a write changed.
type Summary struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
}

var ErrMissingURI = errors.New("graph URI is required")

// Enabled reports whether cfg names a graph database.
func Enabled(cfg config.Neo4jConfig) bool {
	return cfg.URI != ""
}
