package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	pkgconfig "github.com/cloud-wave-best-zizon/pharmacy-service/pkg/config"
)

type DrugRepository interface {
	CreateDrug(ctx context.Context, drug *domain.Drug) error
	GetDrug(ctx context.Context, drugID string) (*domain.Drug, error)
	UpdateDrug(ctx context.Context, drug *domain.Drug) error
	SearchDrugs(ctx context.Context, filter domain.DrugFilter) ([]domain.Drug, error)
}

type PharmacyRepository interface {
	CreatePharmacy(ctx context.Context, pharmacy *domain.Pharmacy) error
	GetPharmacy(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error)
	GetPharmacyByOwner(ctx context.Context, ownerID string) (*domain.Pharmacy, error)
	// UpdatePharmacy replaces the stored profile only while its status still
	// equals expected; otherwise it returns domain.ErrInvalidTransition.
	UpdatePharmacy(ctx context.Context, pharmacy *domain.Pharmacy, expected domain.ApprovalStatus) error
	// ListPharmacies returns every pharmacy when status is empty.
	ListPharmacies(ctx context.Context, status domain.ApprovalStatus) ([]domain.Pharmacy, error)
}

// InventoryUpdate carries the attributes to overwrite; nil fields are kept.
type InventoryUpdate struct {
	Price           *float64
	DiscountPercent *float64
	IsAvailable     *bool
	MinStockLevel   *int
	MaxStockLevel   *int
}

type InventoryRepository interface {
	CreateRecord(ctx context.Context, record *domain.InventoryRecord) error
	GetRecord(ctx context.Context, pharmacyID, drugID string) (*domain.InventoryRecord, error)
	// AdjustQuantity applies delta only if the stored version equals
	// expectedVersion and the result stays non-negative.
	AdjustQuantity(ctx context.Context, pharmacyID, drugID string, delta int, expectedVersion int64, now time.Time) (*domain.InventoryRecord, error)
	UpdateRecord(ctx context.Context, pharmacyID, drugID string, update InventoryUpdate, now time.Time) (*domain.InventoryRecord, error)
	ListByDrug(ctx context.Context, drugID string) ([]domain.InventoryRecord, error)
	ListByPharmacy(ctx context.Context, pharmacyID string) ([]domain.InventoryRecord, error)
}

// DynamoAPI is the subset of the DynamoDB client the repositories use.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

func NewDynamoDBClient(ctx context.Context, cfg *pkgconfig.Config) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
	}
	// DynamoDB Local accepts any static credentials
	if cfg.DynamoEndpoint != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	}), nil
}
