// Package ddbstore is the dynamodb://<table> backing store (additive to
// spec §6's memory/file/ws schemes), grounded directly on the teacher's
// infrastructure/persistence/dynamodb single-table PK/SK design and its
// distributed_lock.go conditional-write CAS pattern, adapted from
// node/edge records to the Object/Relationship/Lease schema.
//
// Single table layout:
//
//	Objects:       PK=OBJECT#<id>        SK=OBJECT#<id>
//	               GSI1PK=TENANT#<tenant>#PROJECT#<project>
//	               GSI1SK=<type>#<updated_at RFC3339>#<id>
//	Relationships: PK=REL#<id>           SK=REL#<id>
//	               GSI1PK=RELSRC#<source_id>   GSI1SK=<type>#<target_id>
//	               GSI2PK=RELTGT#<target_id>   GSI2SK=<type>#<source_id>
//	Leases:        PK=LEASE#<resource_key> SK=LEASE
package ddbstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"amp/internal/domain/object"
	"amp/internal/domain/relationship"
	"amp/internal/domain/shared"
	"amp/internal/store"
	apperrors "amp/pkg/errors"
)

const (
	gsi1Name = "GSI1"
	gsi2Name = "GSI2"
)

// Store implements store.ObjectStore, store.RelationshipStore and
// store.LeaseStore against a single DynamoDB table.
type Store struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

func New(client *dynamodb.Client, tableName string, logger *zap.Logger) *Store {
	return &Store{client: client, tableName: tableName, logger: logger}
}

// EnsureSchema idempotently creates the table and its GSIs on startup, per
// spec §6's "schema initialization is idempotent and runs on startup".
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table: %w", err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI1PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI1SK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI2PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI2SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(gsi1Name),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("GSI1PK"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("GSI1SK"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName: aws.String(gsi2Name),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("GSI2PK"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("GSI2SK"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func s_(v string) *string { return aws.String(v) }

// ---- ObjectStore ----

func objectKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "OBJECT#" + id},
		"SK": &types.AttributeValueMemberS{Value: "OBJECT#" + id},
	}
}

func (s *Store) objectItem(obj *object.Object) (map[string]types.AttributeValue, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	id := obj.ID().String()
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: "OBJECT#" + id},
		"SK":        &types.AttributeValueMemberS{Value: "OBJECT#" + id},
		"GSI1PK":    &types.AttributeValueMemberS{Value: "TENANT#" + obj.Namespace().TenantID + "#PROJECT#" + obj.Namespace().ProjectID},
		"GSI1SK":    &types.AttributeValueMemberS{Value: string(obj.Type()) + "#" + obj.UpdatedAt().UTC().Format(time.RFC3339Nano) + "#" + id},
		"Data":      &types.AttributeValueMemberS{Value: string(data)},
		"UpdatedAt": &types.AttributeValueMemberS{Value: obj.UpdatedAt().UTC().Format(time.RFC3339Nano)},
	}, nil
}

func decodeObject(item map[string]types.AttributeValue) (*object.Object, error) {
	dataAttr, ok := item["Data"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, apperrors.NewInternal("malformed object record")
	}
	var obj object.Object
	if err := json.Unmarshal([]byte(dataAttr.Value), &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *Store) Create(ctx context.Context, obj *object.Object) error {
	item, err := s.objectItem(obj)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           s_(s.tableName),
		Item:                item,
		ConditionExpression: s_("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return apperrors.NewConflict("object " + obj.ID().String() + " already exists")
		}
		return apperrors.NewInternal("dynamodb put item").WithCause(err)
	}
	return nil
}

func (s *Store) CreateBatch(ctx context.Context, objs []*object.Object) []store.BatchResult {
	results := make([]store.BatchResult, 0, len(objs))
	for _, obj := range objs {
		if err := s.Create(ctx, obj); err != nil {
			results = append(results, store.BatchResult{ID: obj.ID().String(), Status: "failed", Error: err.Error()})
			continue
		}
		results = append(results, store.BatchResult{ID: obj.ID().String(), Status: "created"})
	}
	return results
}

func (s *Store) Get(ctx context.Context, id shared.ID) (*object.Object, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: s_(s.tableName),
		Key:       objectKey(id.String()),
	})
	if err != nil {
		return nil, apperrors.NewInternal("dynamodb get item").WithCause(err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFound("object " + id.String())
	}
	return decodeObject(out.Item)
}

func (s *Store) Update(ctx context.Context, id shared.ID, patch map[string]interface{}, now time.Time) (*object.Object, bool, error) {
	obj, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	textChanged, err := obj.Patch(patch, now)
	if err != nil {
		return nil, false, err
	}
	item, err := s.objectItem(obj)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: s_(s.tableName), Item: item}); err != nil {
		return nil, false, apperrors.NewInternal("dynamodb put item").WithCause(err)
	}
	return obj, textChanged, nil
}

// SetEmbedding re-reads and re-writes the item, which DynamoDB serializes
// per partition key the same way Update does.
func (s *Store) SetEmbedding(ctx context.Context, id shared.ID, vec []float64) error {
	obj, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	obj.SetEmbedding(vec)
	item, err := s.objectItem(obj)
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: s_(s.tableName), Item: item}); err != nil {
		return apperrors.NewInternal("dynamodb put item").WithCause(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id shared.ID) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           s_(s.tableName),
		Key:                 objectKey(id.String()),
		ConditionExpression: s_("attribute_exists(PK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return apperrors.NewNotFound("object " + id.String())
		}
		return apperrors.NewInternal("dynamodb delete item").WithCause(err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, f store.Filter, limit, offset int) ([]*object.Object, error) {
	if f.TenantID == "" || f.ProjectID == "" {
		return nil, apperrors.NewValidation("dynamodb list requires tenant_id and project_id")
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              s_(s.tableName),
		IndexName:              s_(gsi1Name),
		KeyConditionExpression: s_("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "TENANT#" + f.TenantID + "#PROJECT#" + f.ProjectID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, apperrors.NewInternal("dynamodb query").WithCause(err)
	}

	matched := make([]*object.Object, 0, len(out.Items))
	for _, item := range out.Items {
		obj, err := decodeObject(item)
		if err != nil {
			continue
		}
		if f.Matches(obj) {
			matched = append(matched, obj)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt().After(matched[j].UpdatedAt()) })

	if offset >= len(matched) {
		return []*object.Object{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// ---- RelationshipStore ----

func relKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "REL#" + id},
		"SK": &types.AttributeValueMemberS{Value: "REL#" + id},
	}
}

func relItem(r *relationship.Relationship) (map[string]types.AttributeValue, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	id := r.ID.String()
	return map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: "REL#" + id},
		"SK":     &types.AttributeValueMemberS{Value: "REL#" + id},
		"GSI1PK": &types.AttributeValueMemberS{Value: "RELSRC#" + r.SourceID.String()},
		"GSI1SK": &types.AttributeValueMemberS{Value: string(r.Type) + "#" + r.TargetID.String()},
		"GSI2PK": &types.AttributeValueMemberS{Value: "RELTGT#" + r.TargetID.String()},
		"GSI2SK": &types.AttributeValueMemberS{Value: string(r.Type) + "#" + r.SourceID.String()},
		"Data":   &types.AttributeValueMemberS{Value: string(data)},
	}, nil
}

func decodeRel(item map[string]types.AttributeValue) (*relationship.Relationship, error) {
	dataAttr, ok := item["Data"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, apperrors.NewInternal("malformed relationship record")
	}
	var r relationship.Relationship
	if err := json.Unmarshal([]byte(dataAttr.Value), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateRelationship(ctx context.Context, r *relationship.Relationship) (*relationship.Relationship, error) {
	if _, err := s.Get(ctx, r.SourceID); err != nil {
		return nil, apperrors.NewValidation("relationship source does not exist: " + r.SourceID.String())
	}
	if _, err := s.Get(ctx, r.TargetID); err != nil {
		return nil, apperrors.NewValidation("relationship target does not exist: " + r.TargetID.String())
	}

	if existing, err := s.findRelationshipByKey(ctx, r.Key()); err == nil && existing != nil {
		return existing, nil
	}

	item, err := relItem(r)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: s_(s.tableName), Item: item}); err != nil {
		return nil, apperrors.NewInternal("dynamodb put item").WithCause(err)
	}
	return r, nil
}

// findRelationshipByKey re-derives idempotent upsert (R2) by querying the
// source-keyed GSI and filtering on type+target in application code, the
// way the teacher's repositories filter post-Query rather than maintaining
// a third composite index.
func (s *Store) findRelationshipByKey(ctx context.Context, key relationship.Key) (*relationship.Relationship, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              s_(s.tableName),
		IndexName:              s_(gsi1Name),
		KeyConditionExpression: s_("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "RELSRC#" + key.SourceID},
			":sk": &types.AttributeValueMemberS{Value: string(key.Type) + "#" + key.TargetID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	return decodeRel(out.Items[0])
}

func (s *Store) ListRelationships(ctx context.Context, sourceID, targetID *shared.ID, relType *relationship.Type) ([]*relationship.Relationship, error) {
	var items []map[string]types.AttributeValue
	var err error

	switch {
	case sourceID != nil:
		items, err = s.queryIndex(ctx, gsi1Name, "RELSRC#"+sourceID.String())
	case targetID != nil:
		items, err = s.queryIndex(ctx, gsi2Name, "RELTGT#"+targetID.String())
	default:
		items, err = s.scanAll(ctx, "REL#")
	}
	if err != nil {
		return nil, apperrors.NewInternal("dynamodb query").WithCause(err)
	}

	out := make([]*relationship.Relationship, 0, len(items))
	for _, item := range items {
		r, err := decodeRel(item)
		if err != nil {
			continue
		}
		if sourceID != nil && !r.SourceID.Equals(*sourceID) {
			continue
		}
		if targetID != nil && !r.TargetID.Equals(*targetID) {
			continue
		}
		if relType != nil && r.Type != *relType {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) queryIndex(ctx context.Context, index, pk string) ([]map[string]types.AttributeValue, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              s_(s.tableName),
		IndexName:              s_(index),
		KeyConditionExpression: s_("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	})
	if err != nil {
		// GSI2's hash key is named GSI2PK; retry with the matching expression.
		out, err = s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              s_(s.tableName),
			IndexName:              s_(index),
			KeyConditionExpression: s_("GSI2PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
		})
		if err != nil {
			return nil, err
		}
	}
	return out.Items, nil
}

func (s *Store) scanAll(ctx context.Context, pkPrefix string) ([]map[string]types.AttributeValue, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        s_(s.tableName),
		FilterExpression: s_("begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: pkPrefix},
		},
	})
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (s *Store) DeleteRelationship(ctx context.Context, id shared.ID) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           s_(s.tableName),
		Key:                 relKey(id.String()),
		ConditionExpression: s_("attribute_exists(PK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return apperrors.NewNotFound("relationship " + id.String())
		}
		return apperrors.NewInternal("dynamodb delete item").WithCause(err)
	}
	return nil
}

func (s *Store) DeleteRelationshipsWhere(ctx context.Context, source, target *shared.ID, relType *relationship.Type) error {
	rels, err := s.ListRelationships(ctx, source, target, relType)
	if err != nil {
		return err
	}
	for _, r := range rels {
		if err := s.DeleteRelationship(ctx, r.ID); err != nil && !apperrors.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteIncidentTo(ctx context.Context, objID shared.ID) error {
	out, err := s.ListRelationships(ctx, &objID, nil, nil)
	if err != nil {
		return err
	}
	in, err := s.ListRelationships(ctx, nil, &objID, nil)
	if err != nil {
		return err
	}
	for _, r := range append(out, in...) {
		if err := s.DeleteRelationship(ctx, r.ID); err != nil && !apperrors.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// ---- LeaseStore ----

func leaseKey(resourceKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "LEASE#" + resourceKey},
		"SK": &types.AttributeValueMemberS{Value: "LEASE"},
	}
}

// GetLease fetches the current lease record for resourceKey, or nil if absent.
func (s *Store) GetLease(ctx context.Context, resourceKey string) (*store.LeaseRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: s_(s.tableName), Key: leaseKey(resourceKey)})
	if err != nil {
		return nil, apperrors.NewInternal("dynamodb get item").WithCause(err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return decodeLease(resourceKey, out.Item)
}

func decodeLease(resourceKey string, item map[string]types.AttributeValue) (*store.LeaseRecord, error) {
	holder := attrString(item["Holder"])
	leaseID := attrString(item["LeaseID"])
	acquiredAt, _ := time.Parse(time.RFC3339Nano, attrString(item["AcquiredAt"]))
	expiresAt, _ := time.Parse(time.RFC3339Nano, attrString(item["ExpiresAt"]))
	id, err := shared.ParseID(leaseID)
	if err != nil {
		return nil, err
	}
	return &store.LeaseRecord{ResourceKey: resourceKey, Holder: holder, LeaseID: id, AcquiredAt: acquiredAt, ExpiresAt: expiresAt}, nil
}

func attrString(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// CompareAndSwapLease writes newRecord iff the stored lease id matches
// expectedLeaseID ("" meaning "no record / expired"), grounded on
// distributed_lock.go's ConditionExpression CAS pattern.
func (s *Store) CompareAndSwapLease(ctx context.Context, resourceKey, expectedLeaseID string, newRecord *store.LeaseRecord) (bool, error) {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "LEASE#" + resourceKey},
		"SK":         &types.AttributeValueMemberS{Value: "LEASE"},
		"Holder":     &types.AttributeValueMemberS{Value: newRecord.Holder},
		"LeaseID":    &types.AttributeValueMemberS{Value: newRecord.LeaseID.String()},
		"AcquiredAt": &types.AttributeValueMemberS{Value: newRecord.AcquiredAt.UTC().Format(time.RFC3339Nano)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: newRecord.ExpiresAt.UTC().Format(time.RFC3339Nano)},
	}

	var condition string
	values := map[string]types.AttributeValue{}
	if expectedLeaseID == "" {
		condition = "attribute_not_exists(PK) OR ExpiresAt < :now"
		values[":now"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)}
	} else {
		condition = "LeaseID = :expected"
		values[":expected"] = &types.AttributeValueMemberS{Value: expectedLeaseID}
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 s_(s.tableName),
		Item:                      item,
		ConditionExpression:       s_(condition),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return false, nil
		}
		return false, apperrors.NewInternal("dynamodb put item").WithCause(err)
	}
	return true, nil
}

func (s *Store) DeleteLease(ctx context.Context, resourceKey string, leaseID shared.ID) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           s_(s.tableName),
		Key:                 leaseKey(resourceKey),
		ConditionExpression: s_("LeaseID = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: leaseID.String()},
		},
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return nil // mismatch or already released: no-op, per §8 idempotence
		}
		return apperrors.NewInternal("dynamodb delete item").WithCause(err)
	}
	return nil
}
