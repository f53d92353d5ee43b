package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

// DrugIndexName is the global secondary index keyed by drug_id.
const DrugIndexName = "drug_id-index"

type DynamoInventoryRepository struct {
	client    DynamoAPI
	tableName string
}

func NewInventoryRepository(client DynamoAPI, tableName string) *DynamoInventoryRepository {
	return &DynamoInventoryRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *DynamoInventoryRepository) key(pharmacyID, drugID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pharmacy_id": &types.AttributeValueMemberS{Value: pharmacyID},
		"drug_id":     &types.AttributeValueMemberS{Value: drugID},
	}
}

func (r *DynamoInventoryRepository) CreateRecord(ctx context.Context, record *domain.InventoryRecord) error {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory record: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pharmacy_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to put inventory record: %w", err)
	}

	return nil
}

func (r *DynamoInventoryRepository) GetRecord(ctx context.Context, pharmacyID, drugID string) (*domain.InventoryRecord, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(pharmacyID, drugID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory record: %w", err)
	}

	if result.Item == nil {
		return nil, domain.ErrNotFound
	}

	var record domain.InventoryRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inventory record: %w", err)
	}

	return &record, nil
}

func (r *DynamoInventoryRepository) AdjustQuantity(ctx context.Context, pharmacyID, drugID string, delta int, expectedVersion int64, now time.Time) (*domain.InventoryRecord, error) {
	update := expression.Set(
		expression.Name("quantity"),
		expression.Plus(expression.Name("quantity"), expression.Value(delta)),
	).Set(
		expression.Name("version"),
		expression.Plus(expression.Name("version"), expression.Value(1)),
	).Set(
		expression.Name("updated_at"),
		expression.Value(now),
	)
	if delta > 0 {
		update = update.Set(expression.Name("last_restocked_at"), expression.Value(now))
	}

	// 읽은 버전이 그대로이고 결과가 음수가 아닐 때만 반영
	condition := expression.Name("version").Equal(expression.Value(expectedVersion))
	if delta < 0 {
		condition = condition.And(expression.GreaterThanEqual(
			expression.Name("quantity"),
			expression.Value(-delta),
		))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return nil, err
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 r.key(pharmacyID, drugID),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, classifyAdjustFailure(ccf.Item, expectedVersion)
		}
		return nil, fmt.Errorf("failed to adjust quantity: %w", err)
	}

	var record domain.InventoryRecord
	if err := attributevalue.UnmarshalMap(result.Attributes, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inventory record: %w", err)
	}

	return &record, nil
}

// classifyAdjustFailure tells a version mismatch from an insufficient
// quantity using the item as it was when the condition failed.
func classifyAdjustFailure(old map[string]types.AttributeValue, expectedVersion int64) error {
	if old == nil {
		return domain.ErrNotFound
	}
	var record domain.InventoryRecord
	if err := attributevalue.UnmarshalMap(old, &record); err != nil {
		return fmt.Errorf("failed to unmarshal inventory record: %w", err)
	}
	if record.Version != expectedVersion {
		return domain.ErrStaleWrite
	}
	return domain.ErrNegativeQuantity
}

func (r *DynamoInventoryRepository) UpdateRecord(ctx context.Context, pharmacyID, drugID string, u InventoryUpdate, now time.Time) (*domain.InventoryRecord, error) {
	update := expression.Set(
		expression.Name("version"),
		expression.Plus(expression.Name("version"), expression.Value(1)),
	).Set(
		expression.Name("updated_at"),
		expression.Value(now),
	)
	if u.Price != nil {
		update = update.Set(expression.Name("price"), expression.Value(*u.Price))
	}
	if u.DiscountPercent != nil {
		update = update.Set(expression.Name("discount_percent"), expression.Value(*u.DiscountPercent))
	}
	if u.IsAvailable != nil {
		update = update.Set(expression.Name("is_available"), expression.Value(*u.IsAvailable))
	}
	if u.MinStockLevel != nil {
		update = update.Set(expression.Name("min_stock_level"), expression.Value(*u.MinStockLevel))
	}
	if u.MaxStockLevel != nil {
		update = update.Set(expression.Name("max_stock_level"), expression.Value(*u.MaxStockLevel))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("pharmacy_id"))).
		Build()
	if err != nil {
		return nil, err
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       r.key(pharmacyID, drugID),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update inventory record: %w", err)
	}

	var record domain.InventoryRecord
	if err := attributevalue.UnmarshalMap(result.Attributes, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inventory record: %w", err)
	}

	return &record, nil
}

func (r *DynamoInventoryRepository) ListByDrug(ctx context.Context, drugID string) ([]domain.InventoryRecord, error) {
	return r.query(ctx, aws.String(DrugIndexName), expression.Key("drug_id").Equal(expression.Value(drugID)))
}

func (r *DynamoInventoryRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]domain.InventoryRecord, error) {
	return r.query(ctx, nil, expression.Key("pharmacy_id").Equal(expression.Value(pharmacyID)))
}

func (r *DynamoInventoryRepository) query(ctx context.Context, index *string, key expression.KeyConditionBuilder) ([]domain.InventoryRecord, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 index,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var records []domain.InventoryRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query inventory: %w", err)
		}
		var batch []domain.InventoryRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inventory: %w", err)
		}
		records = append(records, batch...)
	}

	return records, nil
}
