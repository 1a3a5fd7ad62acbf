// Package customers calls the customer API on behalf of an authenticated session.
package customers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// DefaultCountryCode is sent with every customer creation request.
const DefaultCountryCode = "+91"

// fallbackIDFields are scanned in order when a creation response has no customer_id.
var fallbackIDFields = []string{"id", "customer", "user_id", "profile_id"}

// Session is the part of session.Manager the client needs.
type Session interface {
	EnsureFresh(ctx context.Context) (string, error)
	UserInfo() *authmodel.UserInfo
	SetCustomerID(customerID int64) error
}

// Customer is the result of EnsureCustomerExists. Raw is the decoded creation
// response, nil when the id was already known.
type Customer struct {
	CustomerID *int64
	Raw        map[string]any
}

type WalletBalance struct {
	UserID        int64  `json:"user_id"`
	RealCash      string `json:"real_cash"`
	VirtualCash   string `json:"virtual_cash"`
	CumulativeSum string `json:"cumulative_sum"`
	RechargeCount int    `json:"recharge_count"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, sess Session, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    sess,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// EnsureCustomerExists returns the held customer id, creating the customer
// profile when none is known yet.
func (c *Client) EnsureCustomerExists(ctx context.Context, phoneNumber string) (*Customer, error) {
	userInfo := c.session.UserInfo()
	if userInfo == nil {
		return nil, errors.ErrNotAuthenticated
	}
	if userInfo.CustomerID != nil {
		log.Debug().Int64("customer_id", *userInfo.CustomerID).Msg("customer already exists")
		return &Customer{CustomerID: userInfo.CustomerID}, nil
	}
	return c.CreateCustomerWithPhone(ctx, phoneNumber)
}

// CreateCustomerWithPhone creates the customer profile and attaches the
// returned id to the session's token set.
func (c *Client) CreateCustomerWithPhone(ctx context.Context, phoneNumber string) (*Customer, error) {
	if c.session.UserInfo() == nil {
		return nil, errors.ErrNotAuthenticated
	}
	token, err := c.session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{
		"country_code": DefaultCountryCode,
		"phone_number": phoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode customer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build customer request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := gateway.BearerClient(c.httpClient, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("create customer failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &gateway.StatusError{
			Op:         "create customer",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Failed to create customer profile: %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode customer response: %w", err)
	}

	customer := &Customer{Raw: data}
	id, ok := customerIDFrom(data)
	if !ok {
		log.Warn().Msg("no customer_id in customer response")
		return customer, nil
	}

	customer.CustomerID = &id
	if err := c.session.SetCustomerID(id); err != nil {
		return customer, fmt.Errorf("failed to store customer id: %w", err)
	}
	log.Info().Int64("customer_id", id).Msg("customer created")
	return customer, nil
}

// WalletBalance fetches the wallet for the session's customer, falling back to
// the auth user id when no customer id is held.
func (c *Client) WalletBalance(ctx context.Context) (*WalletBalance, error) {
	userInfo := c.session.UserInfo()
	if userInfo == nil {
		return nil, errors.ErrNotAuthenticated
	}

	customerID := userInfo.UserID
	if userInfo.CustomerID != nil && *userInfo.CustomerID != 0 {
		customerID = *userInfo.CustomerID
	}
	if customerID == 0 {
		return nil, errors.ErrCustomerIDMissing
	}

	token, err := c.session.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%d/wallet/balance", c.baseURL, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build wallet request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := gateway.BearerClient(c.httpClient, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch wallet balance failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, gateway.ReadStatusError("Fetch wallet balance", resp)
	}

	var balance WalletBalance
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		return nil, fmt.Errorf("failed to decode wallet balance: %w", err)
	}
	return &balance, nil
}

func customerIDFrom(data map[string]any) (int64, bool) {
	if id, ok := toID(data["customer_id"]); ok {
		return id, true
	}
	for _, field := range fallbackIDFields {
		if id, ok := toID(data[field]); ok {
			log.Debug().Str("field", field).Msg("customer id found in alternative field")
			return id, true
		}
	}
	return 0, false
}

func toID(v any) (int64, bool) {
	switch id := v.(type) {
	case json.Number:
		n, err := id.Int64()
		return n, err == nil && n != 0
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		return n, err == nil && n != 0
	case map[string]any:
		if n, ok := toID(id["customer_id"]); ok {
			return n, true
		}
		return toID(id["id"])
	}
	return 0, false
}
