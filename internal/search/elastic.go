// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package search

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog"
)

// ElasticConfig holds connection settings for the search index.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
}

// NewElasticGateway builds a Gateway backed by an Elasticsearch cluster.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewElasticGateway(ec ElasticConfig, cfg GatewayConfig, logger zerolog.Logger) (*Gateway, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: ec.Addresses,
		Username:  ec.Username,
		Password:  ec.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return newGateway(&elasticTransport{client: client, index: cfg.Index}, cfg, logger), nil
}

// elasticTransport adapts the Elasticsearch client to the transport seam.
type elasticTransport struct {
	client *elasticsearch.Client
	index  string
}

func (t *elasticTransport) search(ctx context.Context, body []byte) ([]byte, error) {
	res, err := t.client.Search(
		t.client.Search.WithContext(ctx),
		t.client.Search.WithIndex(t.index),
		t.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	return readResponse(res)
}

func (t *elasticTransport) msearch(ctx context.Context, body []byte) ([]byte, error) {
	// Target indices ride in the ndjson header lines.
	res, err := t.client.Msearch(
		bytes.NewReader(body),
		t.client.Msearch.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	return readResponse(res)
}

func readResponse(res *esapi.Response) ([]byte, error) {
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("index returned %s", res.Status())
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read index response: %w", err)
	}
	return raw, nil
}
