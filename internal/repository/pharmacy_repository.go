package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

// Uniqueness of license numbers and owners is kept with marker items in the
// same table, written in one transaction with the profile.
const (
	licenseKeyPrefix = "LICENSE#"
	ownerKeyPrefix   = "OWNER#"
)

type DynamoPharmacyRepository struct {
	client    DynamoAPI
	tableName string
}

func NewPharmacyRepository(client DynamoAPI, tableName string) *DynamoPharmacyRepository {
	return &DynamoPharmacyRepository{
		client:    client,
		tableName: tableName,
	}
}

type markerItem struct {
	PharmacyID string `dynamodbav:"pharmacy_id"`
	Ref        string `dynamodbav:"ref"`
}

func (r *DynamoPharmacyRepository) CreatePharmacy(ctx context.Context, pharmacy *domain.Pharmacy) error {
	av, err := attributevalue.MarshalMap(pharmacy)
	if err != nil {
		return fmt.Errorf("failed to marshal pharmacy: %w", err)
	}
	license, err := attributevalue.MarshalMap(markerItem{PharmacyID: licenseKeyPrefix + pharmacy.LicenseNumber, Ref: pharmacy.PharmacyID})
	if err != nil {
		return fmt.Errorf("failed to marshal license marker: %w", err)
	}
	owner, err := attributevalue.MarshalMap(markerItem{PharmacyID: ownerKeyPrefix + pharmacy.OwnerID, Ref: pharmacy.PharmacyID})
	if err != nil {
		return fmt.Errorf("failed to marshal owner marker: %w", err)
	}

	notExists := aws.String("attribute_not_exists(pharmacy_id)")
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: av, ConditionExpression: notExists}},
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: license, ConditionExpression: notExists}},
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: owner, ConditionExpression: notExists}},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return domain.ErrConflict
				}
			}
		}
		return fmt.Errorf("failed to create pharmacy: %w", err)
	}

	return nil
}

func (r *DynamoPharmacyRepository) GetPharmacy(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error) {
	item, err := r.getItem(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	var pharmacy domain.Pharmacy
	if err := attributevalue.UnmarshalMap(item, &pharmacy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pharmacy: %w", err)
	}
	if pharmacy.Status == "" {
		// a marker item, not a profile
		return nil, domain.ErrNotFound
	}

	return &pharmacy, nil
}

func (r *DynamoPharmacyRepository) GetPharmacyByOwner(ctx context.Context, ownerID string) (*domain.Pharmacy, error) {
	item, err := r.getItem(ctx, ownerKeyPrefix+ownerID)
	if err != nil {
		return nil, err
	}

	var marker markerItem
	if err := attributevalue.UnmarshalMap(item, &marker); err != nil {
		return nil, fmt.Errorf("failed to unmarshal owner marker: %w", err)
	}

	return r.GetPharmacy(ctx, marker.Ref)
}

func (r *DynamoPharmacyRepository) getItem(ctx context.Context, key string) (map[string]types.AttributeValue, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pharmacy_id": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pharmacy: %w", err)
	}
	if result.Item == nil {
		return nil, domain.ErrNotFound
	}
	return result.Item, nil
}

func (r *DynamoPharmacyRepository) UpdatePharmacy(ctx context.Context, pharmacy *domain.Pharmacy, expected domain.ApprovalStatus) error {
	av, err := attributevalue.MarshalMap(pharmacy)
	if err != nil {
		return fmt.Errorf("failed to marshal pharmacy: %w", err)
	}

	cond := expression.Name("status").Equal(expression.Value(expected))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                           aws.String(r.tableName),
		Item:                                av,
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if ccf.Item == nil {
				return domain.ErrNotFound
			}
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("failed to update pharmacy: %w", err)
	}

	return nil
}

func (r *DynamoPharmacyRepository) ListPharmacies(ctx context.Context, status domain.ApprovalStatus) ([]domain.Pharmacy, error) {
	cond := expression.AttributeExists(expression.Name("status"))
	if status != "" {
		cond = expression.Name("status").Equal(expression.Value(status))
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

	var pharmacies []domain.Pharmacy
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pharmacies: %w", err)
		}
		var batch []domain.Pharmacy
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pharmacies: %w", err)
		}
		pharmacies = append(pharmacies, batch...)
	}

	return pharmacies, nil
}
