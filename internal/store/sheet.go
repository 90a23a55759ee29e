package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/familybalance/checkout-backend/internal/awsx"
	"github.com/familybalance/checkout-backend/internal/order"
)

// Ledger column layout. The headers are the Polish labels the back office
// reads, carried over from the historical spreadsheet; reordering them would
// orphan every existing row.
var sheetColumns = []string{
	"Numer zamowienia",
	"Data zamowienia",
	"Email",
	"Telefon",
	"Produkty",
	"Imie",
	"Nazwisko",
	"Ulica",
	"Kod pocztowy",
	"Miasto",
	"Status",
	"Suma",
	"Metoda dostawy",
	"Kurier",
	"Koszt dostawy",
	"PayU OrderId",
	"Uwagi",
}

const (
	colOrderNumber = 0
	colStatus      = 10
	colPayUOrderID = 15
	colNotes       = 16
)

// SheetStore is the secondary backend: a flat CSV ledger object in S3,
// append-only rows, linear scan on lookup. It serves guest orders and
// catches fallback writes from the primary.
type SheetStore struct {
	client  awsx.S3API
	bucket  string
	key     string
	nowFunc func() time.Time
}

func NewSheetStore(client awsx.S3API, bucket, key string) *SheetStore {
	return &SheetStore{
		client:  client,
		bucket:  bucket,
		key:     key,
		nowFunc: time.Now,
	}
}

func (s *SheetStore) Name() string { return "sheet" }

// The ledger is one shared object, so every mutation is a conditional
// read-modify-write keyed on the object's ETag. A concurrent writer makes
// the PutObject fail its precondition; the loser re-reads the new
// generation and replays its change on top of it.
const maxLedgerAttempts = 5

// ErrLedgerContention is returned when the conditional rewrite keeps losing
// to concurrent writers.
var ErrLedgerContention = errors.New("ledger write contention not resolved")

func (s *SheetStore) Write(ctx context.Context, o *order.Order) error {
	for attempt := 0; attempt < maxLedgerAttempts; attempt++ {
		rows, etag, err := s.readAll(ctx)
		if err != nil {
			return err
		}
		rows = append(rows, s.buildRow(o))

		err = s.writeAll(ctx, rows, etag)
		if err == nil {
			return nil
		}
		if !isPreconditionFailed(err) {
			return err
		}
	}
	return fmt.Errorf("%w: order %s", ErrLedgerContention, o.OrderNumber)
}

// UpdateStatus scans the ledger for a row matching, in order: the
// quote-stripped order-number cell, the gateway-id cell, or the legacy
// notes heuristic. The first match gets its status cell rewritten.
func (s *SheetStore) UpdateStatus(ctx context.Context, keys Keys, status order.Status) (bool, error) {
	for attempt := 0; attempt < maxLedgerAttempts; attempt++ {
		rows, etag, err := s.readAll(ctx)
		if err != nil {
			return false, err
		}

		idx := s.findRow(rows, keys)
		if idx < 0 {
			return false, nil
		}

		rows[idx][colStatus] = order.Localize(status)
		err = s.writeAll(ctx, rows, etag)
		if err == nil {
			return true, nil
		}
		if !isPreconditionFailed(err) {
			return false, err
		}
	}
	return false, fmt.Errorf("%w: keys %s/%s", ErrLedgerContention, keys.OrderNumber, keys.GatewayOrderID)
}

func (s *SheetStore) findRow(rows [][]string, keys Keys) int {
	for i, row := range rows[1:] { // skip header
		if len(row) < len(sheetColumns) {
			continue
		}
		if keys.OrderNumber != "" && stripCellQuotes(row[colOrderNumber]) == keys.OrderNumber {
			return i + 1
		}
		if keys.GatewayOrderID != "" && row[colPayUOrderID] == keys.GatewayOrderID {
			return i + 1
		}
		if legacyNotesMatch(row[colNotes], keys.GatewayOrderID) {
			return i + 1
		}
	}
	return -1
}

func (s *SheetStore) buildRow(o *order.Order) []string {
	items, _ := json.Marshal(o.Items)
	shipping := o.ShippingMethod
	if shipping == "" {
		shipping = "DPD"
	}
	return []string{
		// Excel-formula wrapping keeps long numbers from being truncated
		// when the ledger is opened as a spreadsheet.
		fmt.Sprintf("=%q", o.OrderNumber),
		s.nowFunc().Format("02.01.2006"),
		o.Customer.Email,
		o.Customer.Phone,
		string(items),
		o.Customer.FirstName,
		o.Customer.LastName,
		o.Customer.Street,
		o.Customer.PostalCode,
		o.Customer.City,
		order.Localize(o.Status),
		o.Total.StringFixed(2) + " PLN",
		shipping,
		shipping,
		o.ShippingCost.StringFixed(2) + " PLN",
		o.PayUOrderID,
		o.Customer.Notes,
	}
}

// readAll returns the ledger rows together with the object generation its
// conditional rewrite must match. An empty etag means the object does not
// exist yet.
func (s *SheetStore) readAll(ctx context.Context) ([][]string, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
	})
	if err != nil {
		if isMissingObject(err) {
			return [][]string{sheetColumns}, "", nil
		}
		return nil, "", fmt.Errorf("read ledger object: %w", err)
	}
	defer out.Body.Close()

	etag := ""
	if out.ETag != nil {
		etag = *out.ETag
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read ledger body: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("parse ledger: %w", err)
	}
	if len(rows) == 0 {
		rows = [][]string{sheetColumns}
	}
	return rows, etag, nil
}

// writeAll rewrites the ledger object, conditional on the generation the
// rows were read from. A first-ever write demands the key still be absent.
func (s *SheetStore) writeAll(ctx context.Context, rows [][]string, etag string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	contentType := "text/csv"
	in := &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &s.key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: &contentType,
	}
	if etag != "" {
		in.IfMatch = &etag
	} else {
		in.IfNoneMatch = strPtr("*")
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		if isPreconditionFailed(err) {
			return err
		}
		return fmt.Errorf("write ledger object: %w", err)
	}
	return nil
}

// isPreconditionFailed recognizes a conditional write losing to a
// concurrent one. S3 reports the stale IfMatch as 412 PreconditionFailed
// and an in-flight conditional conflict as 409 ConditionalRequestConflict.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "ConditionalRequestConflict"
	}
	return false
}

// isMissingObject treats a first-ever read as an empty ledger. Some
// S3-compatible endpoints report the missing key as a generic API error
// instead of the typed NoSuchKey.
func isMissingObject(err error) bool {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

// stripCellQuotes undoes the ="..." wrapping (and any stray quotes) around
// an order-number cell.
func stripCellQuotes(cell string) string {
	cell = strings.TrimPrefix(cell, "=")
	return strings.Trim(cell, `"`)
}

// legacyNotesMatch is the backward-compat correlation for rows written
// before the ledger grew a PayU OrderId column: those carried the gateway id
// inside the free-text notes cell. Kept isolated so it can be retired once
// no such rows remain.
func legacyNotesMatch(notes, gatewayOrderID string) bool {
	if gatewayOrderID == "" || notes == "" {
		return false
	}
	return strings.Contains(notes, gatewayOrderID)
}
