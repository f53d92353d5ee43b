package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

type DynamoDrugRepository struct {
	client    DynamoAPI
	tableName string
}

func NewDrugRepository(client DynamoAPI, tableName string) *DynamoDrugRepository {
	return &DynamoDrugRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *DynamoDrugRepository) CreateDrug(ctx context.Context, drug *domain.Drug) error {
	return r.put(ctx, drug, expression.AttributeNotExists(expression.Name("drug_id")), domain.ErrConflict)
}

func (r *DynamoDrugRepository) UpdateDrug(ctx context.Context, drug *domain.Drug) error {
	return r.put(ctx, drug, expression.AttributeExists(expression.Name("drug_id")), domain.ErrNotFound)
}

func (r *DynamoDrugRepository) put(ctx context.Context, drug *domain.Drug, cond expression.ConditionBuilder, onFail error) error {
	drug.SearchText = domain.BuildSearchText(drug)

	av, err := attributevalue.MarshalMap(drug)
	if err != nil {
		return fmt.Errorf("failed to marshal drug: %w", err)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return onFail
		}
		return fmt.Errorf("failed to put drug: %w", err)
	}

	return nil
}

func (r *DynamoDrugRepository) GetDrug(ctx context.Context, drugID string) (*domain.Drug, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"drug_id": &types.AttributeValueMemberS{Value: drugID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get drug: %w", err)
	}

	if result.Item == nil {
		return nil, domain.ErrNotFound
	}

	var drug domain.Drug
	if err := attributevalue.UnmarshalMap(result.Item, &drug); err != nil {
		return nil, fmt.Errorf("failed to unmarshal drug: %w", err)
	}

	return &drug, nil
}

// SearchDrugs scans the table with a filter expression built from the
// structured filter. The term is compared against the lower-cased
// search_text attribute written on every put.
func (r *DynamoDrugRepository) SearchDrugs(ctx context.Context, filter domain.DrugFilter) ([]domain.Drug, error) {
	cond := expression.Name("is_active").Equal(expression.Value(true))

	if term := strings.ToLower(strings.TrimSpace(filter.Term)); term != "" {
		cond = cond.And(expression.Contains(expression.Name("search_text"), term))
	}
	if filter.Category != "" {
		cond = cond.And(expression.Name("category").Equal(expression.Value(filter.Category)))
	}
	if filter.Form != "" {
		cond = cond.And(expression.Name("form").Equal(expression.Value(filter.Form)))
	}
	if filter.PrescriptionRequired != nil {
		cond = cond.And(expression.Name("prescription_required").Equal(expression.Value(*filter.PrescriptionRequired)))
	}
	if filter.MinStrength != nil {
		cond = cond.And(expression.Name("strength.value").GreaterThanEqual(expression.Value(*filter.MinStrength)))
	}
	if filter.MaxStrength != nil {
		cond = cond.And(expression.Name("strength.value").LessThanEqual(expression.Value(*filter.MaxStrength)))
	}

	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var drugs []domain.Drug
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drugs: %w", err)
		}
		var batch []domain.Drug
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal drugs: %w", err)
		}
		drugs = append(drugs, batch...)
	}

	return drugs, nil
}
