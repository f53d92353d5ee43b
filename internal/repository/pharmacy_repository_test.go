package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

func TestPharmacyRepository_CreateWritesMarkers(t *testing.T) {
	var captured *dynamodb.TransactWriteItemsInput
	client := &fakeDynamo{transactWriteItems: func(in *dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
		captured = in
		return &dynamodb.TransactWriteItemsOutput{}, nil
	}}
	repo := NewPharmacyRepository(client, "pharmacies")

	err := repo.CreatePharmacy(context.Background(), &domain.Pharmacy{
		PharmacyID: "ph-1", OwnerID: "owner-1", LicenseNumber: "LIC-9", Status: domain.StatusDraft,
	})
	require.NoError(t, err)
	require.NotNil(t, captured)
	require.Len(t, captured.TransactItems, 3)

	var keys []string
	for _, item := range captured.TransactItems {
		require.NotNil(t, item.Put)
		assert.Equal(t, "attribute_not_exists(pharmacy_id)", aws.ToString(item.Put.ConditionExpression))
		keys = append(keys, item.Put.Item["pharmacy_id"].(*types.AttributeValueMemberS).Value)
	}
	assert.Equal(t, []string{"ph-1", "LICENSE#LIC-9", "OWNER#owner-1"}, keys)
}

func TestPharmacyRepository_CreateConflict(t *testing.T) {
	client := &fakeDynamo{transactWriteItems: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
		return nil, &types.TransactionCanceledException{
			Message: aws.String("cancelled"),
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
				{Code: aws.String("None")},
			},
		}
	}}
	repo := NewPharmacyRepository(client, "pharmacies")

	err := repo.CreatePharmacy(context.Background(), &domain.Pharmacy{PharmacyID: "ph-2", OwnerID: "o", LicenseNumber: "LIC-9"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPharmacyRepository_GetByOwner(t *testing.T) {
	profile, err := attributevalue.MarshalMap(domain.Pharmacy{
		PharmacyID: "ph-1", OwnerID: "owner-1", Name: "Green Cross", Status: domain.StatusApproved,
	})
	require.NoError(t, err)
	marker, err := attributevalue.MarshalMap(markerItem{PharmacyID: "OWNER#owner-1", Ref: "ph-1"})
	require.NoError(t, err)

	items := map[string]map[string]types.AttributeValue{
		"ph-1":          profile,
		"OWNER#owner-1": marker,
	}
	client := &fakeDynamo{getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		key := in.Key["pharmacy_id"].(*types.AttributeValueMemberS).Value
		return &dynamodb.GetItemOutput{Item: items[key]}, nil
	}}
	repo := NewPharmacyRepository(client, "pharmacies")

	p, err := repo.GetPharmacyByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Green Cross", p.Name)

	_, err = repo.GetPharmacyByOwner(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// 마커 항목은 약국으로 취급하지 않음
	_, err = repo.GetPharmacy(context.Background(), "OWNER#owner-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPharmacyRepository_UpdateConditionFailure(t *testing.T) {
	tests := []struct {
		name     string
		old      map[string]types.AttributeValue
		expected error
	}{
		{"missing", nil, domain.ErrNotFound},
		{"status moved", map[string]types.AttributeValue{"status": &types.AttributeValueMemberS{Value: "approved"}}, domain.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeDynamo{putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				assert.True(t, strings.Contains(aws.ToString(in.ConditionExpression), "="))
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed"), Item: tt.old}
			}}
			repo := NewPharmacyRepository(client, "pharmacies")

			err := repo.UpdatePharmacy(context.Background(), &domain.Pharmacy{PharmacyID: "ph-1", Status: domain.StatusApproved}, domain.StatusPendingApproval)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
