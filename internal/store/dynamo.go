// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package store provides the DynamoDB-backed primary store for profiles,
// attractions, and page history.
package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/tomtom215/viator/internal/recommend"
)

// batchGetAttempts bounds the retry loop when DynamoDB returns
// unprocessed keys under throttling.
const batchGetAttempts = 5

// summaryProjection is the attribute subset returned by keyword search.
const summaryProjection = "attractionId, attractionName, description, photos, rating, reviews_cnt"

// API is the slice of the DynamoDB client the store uses. Satisfied by
// *dynamodb.Client; tests substitute a fake.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Tables names the three backing tables.
type Tables struct {
	Attractions string `koanf:"attractions"`
	Profiles    string `koanf:"profiles"`
	PageHistory string `koanf:"page_history"`
}

// Validate checks that every table is named.
func (t Tables) Validate() error {
	if t.Attractions == "" || t.Profiles == "" || t.PageHistory == "" {
		return fmt.Errorf("store: all table names required, got %+v", t)
	}
	return nil
}

// Dynamo implements recommend.Store plus the single-entity operations the
// HTTP layer needs.
type Dynamo struct {
	db     API
	tables Tables
	logger zerolog.Logger
}

// New creates a store over an existing DynamoDB client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(db API, tables Tables, logger zerolog.Logger) (*Dynamo, error) {
	if db == nil {
		return nil, fmt.Errorf("store: client is required")
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Dynamo{
		db:     db,
		tables: tables,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// NewClient builds a DynamoDB client from ambient AWS configuration. A
// non-empty endpoint overrides the resolved one, which points local
// development at a DynamoDB Local container.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Profile returns the profile for username, or recommend.ErrNotFound.
func (d *Dynamo) Profile(ctx context.Context, username string) (*recommend.UserProfile, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Profiles),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", username, err)
	}
	if len(out.Item) == 0 {
		return nil, recommend.ErrNotFound
	}

	var profile recommend.UserProfile
	if err := attributevalue.UnmarshalMap(out.Item, &profile); err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", username, err)
	}
	return &profile, nil
}

// Profiles returns every profile via a paginated full table scan.
func (d *Dynamo) Profiles(ctx context.Context) ([]recommend.UserProfile, error) {
	var profiles []recommend.UserProfile
	paginator := dynamodb.NewScanPaginator(d.db, &dynamodb.ScanInput{
		TableName: aws.String(d.tables.Profiles),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan profiles: %w", err)
		}
		var batch []recommend.UserProfile
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("decode profiles page: %w", err)
		}
		profiles = append(profiles, batch...)
	}
	return profiles, nil
}

// PutProfile creates or fully replaces a profile.
func (d *Dynamo) PutProfile(ctx context.Context, profile recommend.UserProfile) error {
	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("encode profile %q: %w", profile.Username, err)
	}
	if _, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Profiles),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put profile %q: %w", profile.Username, err)
	}
	return nil
}

// History returns all page-history entries for username.
func (d *Dynamo) History(ctx context.Context, username string) ([]recommend.PageHistoryEntry, error) {
	var entries []recommend.PageHistoryEntry
	paginator := dynamodb.NewQueryPaginator(d.db, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.PageHistory),
		KeyConditionExpression: aws.String("username = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: username},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query history for %q: %w", username, err)
		}
		var batch []recommend.PageHistoryEntry
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("decode history page for %q: %w", username, err)
		}
		entries = append(entries, batch...)
	}
	return entries, nil
}

// UpsertHistory increments the visit counter and advances the last-visit
// timestamp for one (username, attraction) pair, creating the entry on
// first visit.
func (d *Dynamo) UpsertHistory(ctx context.Context, username, attractionID string, visitedAt int64) error {
	_, err := d.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tables.PageHistory),
		Key: map[string]types.AttributeValue{
			"username":     &types.AttributeValueMemberS{Value: username},
			"attractionId": &types.AttributeValueMemberS{Value: attractionID},
		},
		UpdateExpression: aws.String("SET lastVisit = :ts ADD cnt :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", visitedAt)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert history %q/%q: %w", username, attractionID, err)
	}
	return nil
}

// Attraction returns one full record, or recommend.ErrNotFound.
func (d *Dynamo) Attraction(ctx context.Context, id string) (*recommend.AttractionRecord, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Attractions),
		Key: map[string]types.AttributeValue{
			"attractionId": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get attraction %q: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, recommend.ErrNotFound
	}

	var rec recommend.AttractionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("decode attraction %q: %w", id, err)
	}
	return &rec, nil
}

// PutAttraction writes back a full record, used after view-count updates.
func (d *Dynamo) PutAttraction(ctx context.Context, rec recommend.AttractionRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("encode attraction %q: %w", rec.ID, err)
	}
	if _, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Attractions),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put attraction %q: %w", rec.ID, err)
	}
	return nil
}

// BatchGetAttractions resolves up to 100 identifiers into full records.
// Unknown identifiers are silently skipped; unprocessed keys are retried.
func (d *Dynamo) BatchGetAttractions(ctx context.Context, ids []string) ([]recommend.AttractionRecord, error) {
	items, err := d.batchGet(ctx, ids, "")
	if err != nil {
		return nil, err
	}
	var records []recommend.AttractionRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("decode attraction batch: %w", err)
	}
	return records, nil
}

// BatchGetSummaries resolves identifiers into the search-result
// projection.
func (d *Dynamo) BatchGetSummaries(ctx context.Context, ids []string) ([]recommend.AttractionSummary, error) {
	items, err := d.batchGet(ctx, ids, summaryProjection)
	if err != nil {
		return nil, err
	}
	var summaries []recommend.AttractionSummary
	if err := attributevalue.UnmarshalListOfMaps(items, &summaries); err != nil {
		return nil, fmt.Errorf("decode summary batch: %w", err)
	}
	return summaries, nil
}

func (d *Dynamo) batchGet(ctx context.Context, ids []string, projection string) ([]map[string]types.AttributeValue, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, map[string]types.AttributeValue{
			"attractionId": &types.AttributeValueMemberS{Value: id},
		})
	}

	request := types.KeysAndAttributes{Keys: keys}
	if projection != "" {
		request.ProjectionExpression = aws.String(projection)
	}

	var items []map[string]types.AttributeValue
	pending := map[string]types.KeysAndAttributes{d.tables.Attractions: request}
	for attempt := 0; len(pending) > 0; attempt++ {
		if attempt >= batchGetAttempts {
			return nil, fmt.Errorf("batch get attractions: unprocessed keys after %d attempts", attempt)
		}
		out, err := d.db.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
		if err != nil {
			return nil, fmt.Errorf("batch get attractions: %w", err)
		}
		items = append(items, out.Responses[d.tables.Attractions]...)
		pending = out.UnprocessedKeys
		if len(pending) > 0 {
			d.logger.Debug().Int("attempt", attempt+1).Msg("retrying unprocessed batch-get keys")
		}
	}
	return items, nil
}
