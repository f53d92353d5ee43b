package repository

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

func TestDrugRepository_CreateStoresSearchText(t *testing.T) {
	var stored domain.Drug
	client := &fakeDynamo{putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		require.NoError(t, attributevalue.UnmarshalMap(in.Item, &stored))
		return &dynamodb.PutItemOutput{}, nil
	}}
	repo := NewDrugRepository(client, "drugs")

	err := repo.CreateDrug(context.Background(), &domain.Drug{DrugID: "d1", Name: "Tylenol", GenericName: "Acetaminophen", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "tylenol\nacetaminophen\n\n", stored.SearchText)
}

func TestDrugRepository_PutConditionFailures(t *testing.T) {
	client := &fakeDynamo{putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")}
	}}
	repo := NewDrugRepository(client, "drugs")

	assert.ErrorIs(t, repo.CreateDrug(context.Background(), &domain.Drug{DrugID: "d1"}), domain.ErrConflict)
	assert.ErrorIs(t, repo.UpdateDrug(context.Background(), &domain.Drug{DrugID: "d1"}), domain.ErrNotFound)
}

func TestDrugRepository_SearchBuildsFilter(t *testing.T) {
	drug, err := attributevalue.MarshalMap(domain.Drug{DrugID: "d1", Name: "Amoxil", IsActive: true})
	require.NoError(t, err)

	var captured *dynamodb.ScanInput
	client := &fakeDynamo{scan: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		captured = in
		return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{drug}}, nil
	}}
	repo := NewDrugRepository(client, "drugs")

	rx := true
	drugs, err := repo.SearchDrugs(context.Background(), domain.DrugFilter{
		Term:                 "  AMOX ",
		Category:             domain.CategoryAntibiotics,
		PrescriptionRequired: &rx,
	})
	require.NoError(t, err)
	require.Len(t, drugs, 1)

	require.NotNil(t, captured)
	assert.Contains(t, aws.ToString(captured.FilterExpression), "contains")

	var values []string
	for _, v := range captured.ExpressionAttributeValues {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			values = append(values, s.Value)
		}
	}
	assert.Contains(t, values, "amox", "term is trimmed and lower-cased")
	assert.Contains(t, values, "antibiotics")

	var names []string
	for _, n := range captured.ExpressionAttributeNames {
		names = append(names, n)
	}
	assert.Contains(t, names, "search_text")
	assert.Contains(t, names, "is_active")
}

func TestDrugRepository_GetNotFound(t *testing.T) {
	repo := NewDrugRepository(&fakeDynamo{}, "drugs")

	_, err := repo.GetDrug(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
