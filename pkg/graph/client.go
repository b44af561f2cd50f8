package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ekaya-inc/incident-atlas/pkg/config"
	"github.com/ekaya-inc/incident-atlas/pkg/retry"
)

const connectTimeout = 10 * time.Second

// Client wraps a Neo4j driver together with the target database name.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewClient connects to Neo4j and verifies connectivity.
// Returns nil if the projection is not configured (uri is empty).
func NewClient(ctx context.Context, cfg *config.Neo4jConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = connectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	err = retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return driver.VerifyConnectivity(verifyCtx)
	})
	if err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Client{Driver: driver, Database: cfg.Database}, nil
}

// Close releases the driver. Safe on a nil client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
