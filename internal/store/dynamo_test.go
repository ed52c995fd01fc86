// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/tomtom215/viator/internal/recommend"
)

var testTables = Tables{
	Attractions: "attractions",
	Profiles:    "profiles",
	PageHistory: "page-history",
}

// fakeDynamo scripts responses per operation and records inputs.
type fakeDynamo struct {
	getItem   func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItems  []*dynamodb.PutItemInput
	updates   []*dynamodb.UpdateItemInput
	scanPages []*dynamodb.ScanOutput
	batchGet  func(*dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error)
	queryFn   func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)

	scanCalls  int
	batchCalls int
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getItem(in)
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putItems = append(f.putItems, in)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.batchCalls++
	return f.batchGet(in)
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	out := f.scanPages[f.scanCalls]
	f.scanCalls++
	return out, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return f.queryFn(in)
}

func newTestStore(t *testing.T, db API) *Dynamo {
	t.Helper()
	d, err := New(db, testTables, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func mustMarshal(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("marshal %v: %v", v, err)
	}
	return item
}

func TestNewValidatesTables(t *testing.T) {
	if _, err := New(&fakeDynamo{}, Tables{Profiles: "p"}, zerolog.Nop()); err == nil {
		t.Error("partial table config accepted, want error")
	}
	if _, err := New(nil, testTables, zerolog.Nop()); err == nil {
		t.Error("nil client accepted, want error")
	}
}

func TestProfileFound(t *testing.T) {
	want := recommend.UserProfile{
		Username:          "alice",
		FavoriteCountries: []string{"Japan"},
		AttractionTypes:   []string{"castles"},
	}
	db := &fakeDynamo{getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		if *in.TableName != testTables.Profiles {
			t.Errorf("table = %q, want %q", *in.TableName, testTables.Profiles)
		}
		return &dynamodb.GetItemOutput{Item: mustMarshal(t, want)}, nil
	}}

	got, err := newTestStore(t, db).Profile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if got.Username != "alice" || len(got.FavoriteCountries) != 1 || got.FavoriteCountries[0] != "Japan" {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestProfileAbsent(t *testing.T) {
	db := &fakeDynamo{getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{}, nil
	}}

	_, err := newTestStore(t, db).Profile(context.Background(), "nobody")
	if !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("err = %v, want recommend.ErrNotFound", err)
	}
}

func TestProfilesPaginates(t *testing.T) {
	key := map[string]types.AttributeValue{
		"username": &types.AttributeValueMemberS{Value: "alice"},
	}
	db := &fakeDynamo{scanPages: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{mustMarshal(t, recommend.UserProfile{Username: "alice"})},
			LastEvaluatedKey: key,
		},
		{
			Items: []map[string]types.AttributeValue{mustMarshal(t, recommend.UserProfile{Username: "bob"})},
		},
	}}

	got, err := newTestStore(t, db).Profiles(context.Background())
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(got) != 2 || got[0].Username != "alice" || got[1].Username != "bob" {
		t.Errorf("got %+v, want alice then bob across two pages", got)
	}
	if db.scanCalls != 2 {
		t.Errorf("scan calls = %d, want 2", db.scanCalls)
	}
}

func TestHistoryQueriesByUsername(t *testing.T) {
	db := &fakeDynamo{queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		if *in.KeyConditionExpression != "username = :u" {
			t.Errorf("key condition = %q", *in.KeyConditionExpression)
		}
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			mustMarshal(t, recommend.PageHistoryEntry{Username: "alice", AttractionID: "a1", Count: 3, LastVisit: 99}),
		}}, nil
	}}

	got, err := newTestStore(t, db).History(context.Background(), "alice")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 || got[0].AttractionID != "a1" || got[0].Count != 3 {
		t.Errorf("got %+v, want one entry for a1 with count 3", got)
	}
}

func TestUpsertHistoryExpression(t *testing.T) {
	db := &fakeDynamo{}
	if err := newTestStore(t, db).UpsertHistory(context.Background(), "alice", "a1", 1234); err != nil {
		t.Fatalf("UpsertHistory: %v", err)
	}

	if len(db.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(db.updates))
	}
	in := db.updates[0]
	if *in.UpdateExpression != "SET lastVisit = :ts ADD cnt :one" {
		t.Errorf("update expression = %q", *in.UpdateExpression)
	}
	ts, ok := in.ExpressionAttributeValues[":ts"].(*types.AttributeValueMemberN)
	if !ok || ts.Value != "1234" {
		t.Errorf("timestamp value = %v, want N 1234", in.ExpressionAttributeValues[":ts"])
	}
}

func TestBatchGetAttractionsRetriesUnprocessed(t *testing.T) {
	first := true
	db := &fakeDynamo{}
	db.batchGet = func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
		if first {
			first = false
			return &dynamodb.BatchGetItemOutput{
				Responses: map[string][]map[string]types.AttributeValue{
					testTables.Attractions: {mustMarshal(t, recommend.AttractionRecord{ID: "a1"})},
				},
				UnprocessedKeys: map[string]types.KeysAndAttributes{
					testTables.Attractions: {Keys: []map[string]types.AttributeValue{
						{"attractionId": &types.AttributeValueMemberS{Value: "a2"}},
					}},
				},
			}, nil
		}
		return &dynamodb.BatchGetItemOutput{
			Responses: map[string][]map[string]types.AttributeValue{
				testTables.Attractions: {mustMarshal(t, recommend.AttractionRecord{ID: "a2"})},
			},
		}, nil
	}

	got, err := newTestStore(t, db).BatchGetAttractions(context.Background(), []string{"a1", "a2"})
	if err != nil {
		t.Fatalf("BatchGetAttractions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 across retries", len(got))
	}
	if db.batchCalls != 2 {
		t.Errorf("batch calls = %d, want 2", db.batchCalls)
	}
}

func TestBatchGetAttractionsGivesUpEventually(t *testing.T) {
	stuck := map[string]types.KeysAndAttributes{
		testTables.Attractions: {Keys: []map[string]types.AttributeValue{
			{"attractionId": &types.AttributeValueMemberS{Value: "a1"}},
		}},
	}
	db := &fakeDynamo{}
	db.batchGet = func(*dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
		return &dynamodb.BatchGetItemOutput{UnprocessedKeys: stuck}, nil
	}

	if _, err := newTestStore(t, db).BatchGetAttractions(context.Background(), []string{"a1"}); err == nil {
		t.Error("permanently unprocessed keys accepted, want error")
	}
	if db.batchCalls != batchGetAttempts {
		t.Errorf("batch calls = %d, want %d", db.batchCalls, batchGetAttempts)
	}
}

func TestBatchGetAttractionsEmptyInput(t *testing.T) {
	db := &fakeDynamo{}
	got, err := newTestStore(t, db).BatchGetAttractions(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchGetAttractions: %v", err)
	}
	if len(got) != 0 || db.batchCalls != 0 {
		t.Errorf("empty input hit the store: records=%d calls=%d", len(got), db.batchCalls)
	}
}

func TestBatchGetSummariesProjects(t *testing.T) {
	db := &fakeDynamo{}
	db.batchGet = func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
		proj := in.RequestItems[testTables.Attractions].ProjectionExpression
		if proj == nil || *proj != summaryProjection {
			t.Errorf("projection = %v, want %q", proj, summaryProjection)
		}
		return &dynamodb.BatchGetItemOutput{
			Responses: map[string][]map[string]types.AttributeValue{
				testTables.Attractions: {mustMarshal(t, recommend.AttractionSummary{ID: "a1", Name: "Louvre"})},
			},
		}, nil
	}

	got, err := newTestStore(t, db).BatchGetSummaries(context.Background(), []string{"a1"})
	if err != nil {
		t.Fatalf("BatchGetSummaries: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Louvre" {
		t.Errorf("got %+v, want the Louvre summary", got)
	}
}

func TestPutAttractionTargetsAttractionsTable(t *testing.T) {
	db := &fakeDynamo{}
	if err := newTestStore(t, db).PutAttraction(context.Background(), recommend.AttractionRecord{ID: "a1"}); err != nil {
		t.Fatalf("PutAttraction: %v", err)
	}
	if len(db.putItems) != 1 || *db.putItems[0].TableName != testTables.Attractions {
		t.Errorf("put targeted %v, want %q", db.putItems, testTables.Attractions)
	}
}
