// Package shipping creates InPost ShipX shipments for paid orders. Only the
// collaborator contract lives here: order number plus recipient and package
// details in, tracking number and label URL out.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrMissingRecipient = errors.New("recipient name, email and phone are required")
	ErrMissingDelivery  = errors.New("either paczkomat id or address is required")
	ErrUnreachable      = errors.New("could not connect to shipping provider")
)

// RejectedError carries the ShipX API's own error payload.
type RejectedError struct {
	StatusCode int
	Details    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("shipping provider rejected shipment: HTTP %d: %s", e.StatusCode, e.Details)
}

type Address struct {
	Street         string `json:"street"`
	BuildingNumber string `json:"buildingNumber"`
	City           string `json:"city"`
	PostCode       string `json:"postCode"`
}

type Recipient struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	PaczkomatID string   `json:"paczkomatId,omitempty"`
	Address     *Address `json:"address,omitempty"`
}

type PackageDetails struct {
	Size   string  `json:"size"` // A | B | C
	Weight float64 `json:"weight,omitempty"`
}

type CreateShipmentInput struct {
	OrderNumber    string
	Recipient      Recipient
	PackageDetails PackageDetails
}

type Shipment struct {
	ID             string
	TrackingNumber string
	LabelURL       string
	Status         string
}

// Client talks to the ShipX API for one organization.
type Client struct {
	apiURL         string
	token          string
	organizationID string
	http           *http.Client
	logger         *zap.SugaredLogger
}

func NewClient(apiURL, token, organizationID string, logger *zap.SugaredLogger) *Client {
	return &Client{
		apiURL:         strings.TrimRight(apiURL, "/"),
		token:          token,
		organizationID: organizationID,
		http:           &http.Client{},
		logger:         logger,
	}
}

// CreateShipment registers a shipment, locker or courier depending on
// whether the recipient carries a paczkomat id.
func (c *Client) CreateShipment(ctx context.Context, in CreateShipmentInput) (Shipment, error) {
	if in.Recipient.Email == "" || in.Recipient.Phone == "" {
		return Shipment{}, ErrMissingRecipient
	}
	if in.Recipient.PaczkomatID == "" && in.Recipient.Address == nil {
		return Shipment{}, ErrMissingDelivery
	}

	payload := c.buildPayload(in)
	body, err := json.Marshal(payload)
	if err != nil {
		return Shipment{}, fmt.Errorf("marshal shipment payload: %w", err)
	}

	url := fmt.Sprintf("%s/organizations/%s/shipments", c.apiURL, c.organizationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Shipment{}, fmt.Errorf("build shipment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return Shipment{}, fmt.Errorf("read shipment response: %w", err)
	}
	if res.StatusCode >= 400 {
		return Shipment{}, &RejectedError{StatusCode: res.StatusCode, Details: string(resBody)}
	}

	var parsed struct {
		ID             json.Number `json:"id"`
		TrackingNumber string      `json:"tracking_number"`
		Status         string      `json:"status"`
	}
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return Shipment{}, fmt.Errorf("parse shipment response: %w", err)
	}

	shipment := Shipment{
		ID:             parsed.ID.String(),
		TrackingNumber: parsed.TrackingNumber,
		Status:         parsed.Status,
		LabelURL:       fmt.Sprintf("%s/shipments/%s/label", c.apiURL, parsed.ID.String()),
	}
	c.logger.Infow("shipment created",
		"orderNumber", in.OrderNumber, "shipmentId", shipment.ID, "tracking", shipment.TrackingNumber)
	return shipment, nil
}

type shipxPayload struct {
	Receiver         shipxReceiver  `json:"receiver"`
	Service          string         `json:"service"`
	Reference        string         `json:"reference"`
	Parcels          any            `json:"parcels"`
	CustomAttributes map[string]any `json:"custom_attributes,omitempty"`
}

type shipxReceiver struct {
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Address   map[string]any `json:"address,omitempty"`
}

func (c *Client) buildPayload(in CreateShipmentInput) shipxPayload {
	receiver := shipxReceiver{
		FirstName: in.Recipient.FirstName,
		LastName:  in.Recipient.LastName,
		Email:     in.Recipient.Email,
		Phone:     strings.ReplaceAll(in.Recipient.Phone, " ", ""),
	}

	reference := in.OrderNumber
	if reference == "" {
		reference = "FB-ORDER"
	}

	// Locker delivery uses the parcel template and a target point; courier
	// needs the full street address and a weighed parcel.
	if in.Recipient.PaczkomatID != "" {
		return shipxPayload{
			Receiver:  receiver,
			Service:   "inpost_locker_standard",
			Reference: reference,
			Parcels:   map[string]any{"template": templateForSize(in.PackageDetails.Size)},
			CustomAttributes: map[string]any{
				"sending_method": "dispatch_order",
				"target_point":   in.Recipient.PaczkomatID,
			},
		}
	}

	weight := in.PackageDetails.Weight
	if weight <= 0 {
		weight = 1.0
	}
	addr := in.Recipient.Address
	receiver.Address = map[string]any{
		"street":          addr.Street,
		"building_number": orDefault(addr.BuildingNumber, "1"),
		"city":            addr.City,
		"post_code":       addr.PostCode,
		"country_code":    "PL",
	}
	return shipxPayload{
		Receiver:  receiver,
		Service:   "inpost_courier_standard",
		Reference: reference,
		Parcels: []map[string]any{{
			"template":        templateForSize(in.PackageDetails.Size),
			"is_non_standard": false,
			"weight":          map[string]string{"amount": fmt.Sprintf("%.1f", weight), "unit": "kg"},
		}},
	}
}

func templateForSize(size string) string {
	switch strings.ToUpper(size) {
	case "B":
		return "medium"
	case "C":
		return "large"
	default:
		return "small"
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
