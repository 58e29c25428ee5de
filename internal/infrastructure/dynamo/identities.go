package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/identity-api/internal/domain"
)

// Key prefixes inside the identities table. Identity items live next to
// EMAIL#/PHONE# marker items; the markers are what make email and phone
// unique across all identities — uniqueness is enforced here, at the
// persistence boundary, never by an application-level lock.
const (
	pkIdentity = "IDENTITY#"
	pkEmail    = "EMAIL#"
	pkPhone    = "PHONE#"
)

// IdentityRepo provides typed DynamoDB operations for the identities table.
type IdentityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIdentityRepo(client *dynamodb.Client, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

type identityItem struct {
	PK string `dynamodbav:"pk"`
	domain.Identity
}

type markerItem struct {
	PK         string `dynamodbav:"pk"`
	IdentityID string `dynamodbav:"identity_id"`
}

func identityKey(id string) string { return pkIdentity + id }
func emailKey(email string) string { return pkEmail + strings.ToLower(email) }
func phoneKey(phone string) string { return pkPhone + phone }

// Create writes the identity item and both contact markers in one
// transaction. A marker that already exists cancels the whole transaction,
// which surfaces as the conflict error; nothing is partially written.
func (r *IdentityRepo) Create(ctx context.Context, ident *domain.Identity) error {
	item, err := attributevalue.MarshalMap(identityItem{PK: identityKey(ident.IdentityID), Identity: *ident})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	writes := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(pk)"),
		}},
		r.putMarker(emailKey(ident.Email), ident.IdentityID),
		r.putMarker(phoneKey(ident.Phone), ident.IdentityID),
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	return r.mapConflict(err)
}

// Save overwrites the identity item. When the email or phone changed since
// the record was loaded, the old marker is released and the new one claimed
// in the same transaction, so a concurrent claim of the same contact fails
// with a conflict instead of silently duplicating it.
func (r *IdentityRepo) Save(ctx context.Context, ident *domain.Identity, prevEmail, prevPhone string) error {
	ident.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(identityItem{PK: identityKey(ident.IdentityID), Identity: *ident})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	emailChanged := emailKey(ident.Email) != emailKey(prevEmail)
	phoneChanged := phoneKey(ident.Phone) != phoneKey(prevPhone)

	if !emailChanged && !phoneChanged {
		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      item,
		})
		return err
	}

	writes := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		}},
	}
	if emailChanged {
		writes = append(writes,
			r.deleteMarker(emailKey(prevEmail)),
			r.putMarker(emailKey(ident.Email), ident.IdentityID),
		)
	}
	if phoneChanged {
		writes = append(writes,
			r.deleteMarker(phoneKey(prevPhone)),
			r.putMarker(phoneKey(ident.Phone), ident.IdentityID),
		)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	return r.mapConflict(err)
}

func (r *IdentityRepo) FindByID(ctx context.Context, identityID string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("pk", identityKey(identityID)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity %s: %w", identityID, domain.ErrNotFound)
	}
	var item identityItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &item.Identity, nil
}

// FindByEmailOrPhone resolves value first as an email, then as a phone
// number, via the marker items.
func (r *IdentityRepo) FindByEmailOrPhone(ctx context.Context, value string) (*domain.Identity, error) {
	for _, pk := range []string{emailKey(value), phoneKey(value)} {
		id, err := r.markerTarget(ctx, pk)
		if err != nil {
			return nil, err
		}
		if id != "" {
			return r.FindByID(ctx, id)
		}
	}
	return nil, fmt.Errorf("no identity for %q: %w", value, domain.ErrNotFound)
}

// Update applies a partial update to the identity item. Used for touches
// that must not rewrite the whole record, like last_login.
func (r *IdentityRepo) Update(ctx context.Context, identityID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("pk", identityKey(identityID)),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *IdentityRepo) markerTarget(ctx context.Context, pk string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("pk", pk),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", nil
	}
	var m markerItem
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return "", err
	}
	return m.IdentityID, nil
}

func (r *IdentityRepo) putMarker(pk, identityID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"pk":          &types.AttributeValueMemberS{Value: pk},
			"identity_id": &types.AttributeValueMemberS{Value: identityID},
		},
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	}}
}

func (r *IdentityRepo) deleteMarker(pk string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(r.tableName),
		Key:       strKey("pk", pk),
	}}
}

// mapConflict converts a cancelled transaction caused by an existing marker
// into the domain conflict error.
func (r *IdentityRepo) mapConflict(err error) error {
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return fmt.Errorf("contact already claimed: %w", domain.ErrEmailOrPhoneUsed)
			}
		}
	}
	return err
}
