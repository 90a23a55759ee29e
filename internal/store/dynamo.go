package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/familybalance/checkout-backend/internal/awsx"
	"github.com/familybalance/checkout-backend/internal/money"
	"github.com/familybalance/checkout-backend/internal/order"
)

// GSI names on the orders table. Both project the document id so a matched
// query can be turned into an UpdateItem.
const (
	orderNumberIndex = "order_number-index"
	payuOrderIDIndex = "payu_order_id-index"
)

// orderDocument is the item shape persisted in the orders table.
type orderDocument struct {
	ID             string           `dynamodbav:"id"` // PK
	UserID         string           `dynamodbav:"user_id"`
	OrderNumber    string           `dynamodbav:"order_number"`
	PayUOrderID    string           `dynamodbav:"payu_order_id,omitempty"`
	Status         string           `dynamodbav:"status"`
	Total          string           `dynamodbav:"total"`
	Subtotal       string           `dynamodbav:"subtotal"`
	DiscountAmount string           `dynamodbav:"discount_amount"`
	ShippingCost   string           `dynamodbav:"shipping_cost"`
	Items          []order.LineItem `dynamodbav:"items"`
	FirstName      string           `dynamodbav:"first_name"`
	LastName       string           `dynamodbav:"last_name"`
	Email          string           `dynamodbav:"email"`
	Phone          string           `dynamodbav:"phone"`
	Street         string           `dynamodbav:"street"`
	PostalCode     string           `dynamodbav:"postal_code"`
	City           string           `dynamodbav:"city"`
	Shipping       string           `dynamodbav:"shipping,omitempty"`
	Notes          string           `dynamodbav:"notes,omitempty"`
	CreatedAt      time.Time        `dynamodbav:"created_at"`
	LastUpdated    time.Time        `dynamodbav:"last_updated"`
}

// DynamoStore is the primary backend: one document per authenticated order,
// with equality lookups via the order-number and gateway-id indexes.
type DynamoStore struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

func NewDynamoStore(client awsx.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

func (s *DynamoStore) Name() string { return "dynamodb" }

func (s *DynamoStore) Write(ctx context.Context, o *order.Order) error {
	now := s.nowFunc()
	doc := orderDocument{
		ID:             s.newID(),
		UserID:         o.OwnerID,
		OrderNumber:    o.OrderNumber,
		PayUOrderID:    o.PayUOrderID,
		Status:         string(o.Status),
		Total:          o.Total.StringFixed(2),
		Subtotal:       o.Subtotal.StringFixed(2),
		DiscountAmount: o.DiscountAmount.StringFixed(2),
		ShippingCost:   o.ShippingCost.StringFixed(2),
		Items:          o.Items,
		FirstName:      o.Customer.FirstName,
		LastName:       o.Customer.LastName,
		Email:          o.Customer.Email,
		Phone:          o.Customer.Phone,
		Street:         o.Customer.Street,
		PostalCode:     o.Customer.PostalCode,
		City:           o.Customer.City,
		Shipping:       o.ShippingMethod,
		Notes:          o.Customer.Notes,
		CreatedAt:      now,
		LastUpdated:    now,
	}

	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("marshal order document: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put order document: %w", err)
	}
	return nil
}

// UpdateStatus looks the order up by merchant number first, then by the
// gateway's id, and rewrites the status cell with its localized display
// value.
func (s *DynamoStore) UpdateStatus(ctx context.Context, keys Keys, status order.Status) (bool, error) {
	id, err := s.findDocumentID(ctx, keys)
	if err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}

	now := s.nowFunc()
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:         strPtr("SET #s = :status, last_updated = :lu"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: order.Localize(status)},
			":lu":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return true, nil
}

// GetByOrderNumber returns the stored order, or nil when no document
// matches. The fulfillment worker uses it to recover shipping details for
// paid orders.
func (s *DynamoStore) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.getByIndex(ctx, orderNumberIndex, "order_number", orderNumber)
}

// GetByGatewayOrderID is the fallback lookup for notifications that carried
// no extOrderId.
func (s *DynamoStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	return s.getByIndex(ctx, payuOrderIDIndex, "payu_order_id", gatewayOrderID)
}

func (s *DynamoStore) getByIndex(ctx context.Context, index, attr, value string) (*order.Order, error) {
	// DynamoDB rejects an empty key-condition value outright.
	if value == "" {
		return nil, nil
	}

	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &index,
		KeyConditionExpression: strPtr("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: int32Ptr(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var doc orderDocument
	if err := attributevalue.UnmarshalMap(out.Items[0], &doc); err != nil {
		return nil, fmt.Errorf("unmarshal order document: %w", err)
	}
	return docToOrder(doc), nil
}

func docToOrder(doc orderDocument) *order.Order {
	return &order.Order{
		OrderNumber:    doc.OrderNumber,
		PayUOrderID:    doc.PayUOrderID,
		Status:         order.Status(doc.Status),
		Total:          parseAmount(doc.Total),
		Subtotal:       parseAmount(doc.Subtotal),
		DiscountAmount: parseAmount(doc.DiscountAmount),
		ShippingCost:   parseAmount(doc.ShippingCost),
		Items:          doc.Items,
		Customer: order.Customer{
			Email:      doc.Email,
			Phone:      doc.Phone,
			FirstName:  doc.FirstName,
			LastName:   doc.LastName,
			Street:     doc.Street,
			PostalCode: doc.PostalCode,
			City:       doc.City,
			Notes:      doc.Notes,
		},
		ShippingMethod: doc.Shipping,
		Authenticated:  true,
		OwnerID:        doc.UserID,
		CreatedAt:      doc.CreatedAt,
		LastUpdated:    doc.LastUpdated,
	}
}

// parseAmount reads back a StringFixed(2) cell; malformed cells degrade to
// zero the same way client input does.
func parseAmount(s string) decimal.Decimal {
	d, _ := money.Normalize(s)
	return d
}

func (s *DynamoStore) findDocumentID(ctx context.Context, keys Keys) (string, error) {
	if keys.OrderNumber != "" {
		id, err := s.queryIndex(ctx, orderNumberIndex, "order_number", keys.OrderNumber)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	if keys.GatewayOrderID != "" {
		return s.queryIndex(ctx, payuOrderIDIndex, "payu_order_id", keys.GatewayOrderID)
	}
	return "", nil
}

func (s *DynamoStore) queryIndex(ctx context.Context, index, attr, value string) (string, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &index,
		KeyConditionExpression: strPtr("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: int32Ptr(1),
	})
	if err != nil {
		return "", fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return "", nil
	}
	idAttr, ok := out.Items[0]["id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("query %s: item missing id attribute", index)
	}
	return idAttr.Value, nil
}

func strPtr(s string) *string { return &s }
func int32Ptr(n int32) *int32 { return &n }
