package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	authorizePath = "/pl/standard/user/oauth/authorize"
	ordersPath    = "/api/v2_1/orders"
)

var htmlRedirectRe = regexp.MustCompile(`window\.location\.href\s*=\s*["'](.*?)["']`)

// Client talks to the gateway's REST API. Redirect responses are not
// followed: the Location header is the payment page URL handed back to the
// browser.
type Client struct {
	cfg    Config
	signer *Signer
	http   *http.Client
	logger *zap.SugaredLogger
}

func NewClient(cfg Config, signer *Signer, logger *zap.SugaredLogger) *Client {
	return &Client{
		cfg:    cfg,
		signer: signer,
		logger: logger,
		http: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// authorize performs the client-credentials exchange. The token is used for
// a single logical operation and never cached across calls; concurrent
// expiry is handled reactively by the 401 retry in CreateOrder.
func (c *Client) authorize(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+authorizePath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrGatewayAuth, errorDescription(body, res.StatusCode))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in auth response", ErrGatewayAuth)
	}
	return tok.AccessToken, nil
}

// CreateOrder signs and submits the order, normalizing the gateway's three
// response shapes into one result. On a 401 the credential is refreshed and
// the identical request retried exactly once; a second 401 is fatal.
func (c *Client) CreateOrder(ctx context.Context, o Order) (CreateOrderResult, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("marshal order: %w", err)
	}
	signature := c.signer.Sign(payload)

	token, err := c.authorize(ctx)
	if err != nil {
		return CreateOrderResult{}, err
	}

	status, headers, body, err := c.postOrder(ctx, payload, signature, token)
	if err != nil {
		return CreateOrderResult{}, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Infow("auth token rejected, retrying with a fresh token", "orderNumber", o.ExtOrderID)
		token, err = c.authorize(ctx)
		if err != nil {
			return CreateOrderResult{}, err
		}
		status, headers, body, err = c.postOrder(ctx, payload, signature, token)
		if err != nil {
			return CreateOrderResult{}, err
		}
		if status == http.StatusUnauthorized {
			return CreateOrderResult{}, fmt.Errorf("%w: credential rejected after refresh", ErrGatewayAuth)
		}
	}

	return c.interpretResponse(o, status, headers, body)
}

func (c *Client) postOrder(ctx context.Context, payload []byte, signature, token string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenPayU-Signature", SignatureHeader(signature))

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read order response: %w", err)
	}
	return res.StatusCode, res.Header, body, nil
}

func (c *Client) interpretResponse(o Order, status int, headers http.Header, body []byte) (CreateOrderResult, error) {
	// Redirect shape: the payment page URL travels in Location.
	if status == http.StatusFound || status == http.StatusMovedPermanently {
		if loc := headers.Get("Location"); loc != "" {
			return CreateOrderResult{
				RedirectURL: loc,
				OrderID:     o.ExtOrderID,
				Status:      "REDIRECT",
				ExtOrderID:  o.ExtOrderID,
			}, nil
		}
	}

	if status >= 400 {
		return CreateOrderResult{}, &RejectedError{
			StatusCode:  status,
			Description: errorDescription(body, status),
		}
	}

	// JSON shape.
	var parsed createOrderResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		success := parsed.RedirectURI != "" ||
			(parsed.Status != nil && parsed.Status.StatusCode == "SUCCESS")
		if success {
			statusCode := ""
			if parsed.Status != nil {
				statusCode = parsed.Status.StatusCode
			}
			return CreateOrderResult{
				RedirectURL: parsed.RedirectURI,
				OrderID:     parsed.OrderID,
				Status:      statusCode,
				ExtOrderID:  o.ExtOrderID,
			}, nil
		}
	}

	// HTML shape: a page that bounces the browser via window.location.href.
	if m := htmlRedirectRe.FindSubmatch(body); m != nil {
		return CreateOrderResult{
			RedirectURL: string(m[1]),
			OrderID:     o.ExtOrderID,
			Status:      "REDIRECT",
			ExtOrderID:  o.ExtOrderID,
		}, nil
	}

	c.logger.Errorw("unrecognized gateway response",
		"orderNumber", o.ExtOrderID, "httpStatus", status)
	return CreateOrderResult{}, ErrInvalidResponse
}

// GetOrderStatus fetches the gateway's current view of an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	body, err := c.authorizedRequest(ctx, http.MethodGet, ordersPath+"/"+orderID)
	if err != nil {
		return "", err
	}
	var parsed orderStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Orders) == 0 || parsed.Orders[0].Status == "" {
		return "", ErrInvalidResponse
	}
	return parsed.Orders[0].Status, nil
}

// CancelOrder asks the gateway to cancel an order it still holds open.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (string, error) {
	body, err := c.authorizedRequest(ctx, http.MethodDelete, ordersPath+"/"+orderID)
	if err != nil {
		return "", err
	}
	var parsed createOrderResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Status == nil || parsed.Status.StatusCode == "" {
		return "", ErrInvalidResponse
	}
	return parsed.Status.StatusCode, nil
}

func (c *Client) authorizedRequest(ctx context.Context, method, path string) ([]byte, error) {
	token, err := c.authorize(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 400 {
		return nil, &RejectedError{StatusCode: res.StatusCode, Description: errorDescription(body, res.StatusCode)}
	}
	return body, nil
}

func errorDescription(body []byte, status int) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.ErrorDescription != "" {
			return parsed.ErrorDescription
		}
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Status != nil && parsed.Status.StatusDesc != "" {
			return parsed.Status.StatusDesc
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
