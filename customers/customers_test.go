package customers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/customers"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	token      string
	info       *authmodel.UserInfo
	customerID *int64
}

func (f *fakeSession) EnsureFresh(context.Context) (string, error) {
	if f.token == "" {
		return "", errors.ErrNotAuthenticated
	}
	return f.token, nil
}

func (f *fakeSession) UserInfo() *authmodel.UserInfo {
	return f.info
}

func (f *fakeSession) SetCustomerID(id int64) error {
	f.customerID = &id
	return nil
}

func TestEnsureCustomerExists_ShortCircuits(t *testing.T) {
	sess := &fakeSession{token: "access-1", info: &authmodel.UserInfo{UserID: 42, CustomerID: utils.Ptr(int64(7))}}
	c := customers.New("http://unused.invalid", sess)

	customer, err := c.EnsureCustomerExists(context.Background(), "9876543210")
	require.NoError(t, err)
	require.Equal(t, int64(7), utils.Value(customer.CustomerID))
	require.Nil(t, sess.customerID)
}

func TestEnsureCustomerExists_NotAuthenticated(t *testing.T) {
	c := customers.New("http://unused.invalid", &fakeSession{})
	_, err := c.EnsureCustomerExists(context.Background(), "9876543210")
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestCreateCustomerWithPhone(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID *int64
	}{
		{name: "customer_id", body: `{"customer_id": 11}`, wantID: utils.Ptr(int64(11))},
		{name: "id fallback", body: `{"id": 12}`, wantID: utils.Ptr(int64(12))},
		{name: "nested customer", body: `{"customer": {"id": 13}}`, wantID: utils.Ptr(int64(13))},
		{name: "string profile_id", body: `{"profile_id": "14"}`, wantID: utils.Ptr(int64(14))},
		{name: "no id", body: `{"status": "created"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/", r.URL.Path)
				require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "+91", body["country_code"])
				require.Equal(t, "9876543210", body["phone_number"])

				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			sess := &fakeSession{token: "access-1", info: &authmodel.UserInfo{UserID: 42}}
			customer, err := customers.New(srv.URL, sess).EnsureCustomerExists(context.Background(), "9876543210")
			require.NoError(t, err)
			require.NotNil(t, customer.Raw)
			require.Equal(t, tc.wantID, customer.CustomerID)
			require.Equal(t, tc.wantID, sess.customerID)
		})
	}
}

func TestCreateCustomerWithPhone_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	sess := &fakeSession{token: "access-1", info: &authmodel.UserInfo{UserID: 42}}
	_, err := customers.New(srv.URL, sess).CreateCustomerWithPhone(context.Background(), "9876543210")
	require.EqualError(t, err, "Failed to create customer profile: 409 - Conflict")
}

func TestWalletBalance(t *testing.T) {
	tests := []struct {
		name     string
		info     *authmodel.UserInfo
		wantPath string
	}{
		{name: "customer id", info: &authmodel.UserInfo{UserID: 42, CustomerID: utils.Ptr(int64(7))}, wantPath: "/7/wallet/balance"},
		{name: "falls back to user id", info: &authmodel.UserInfo{UserID: 42}, wantPath: "/42/wallet/balance"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, tc.wantPath, r.URL.Path)
				require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`{"user_id": 42, "real_cash": "100.00", "virtual_cash": "5.00", "cumulative_sum": "105.00", "recharge_count": 2}`))
			}))
			defer srv.Close()

			balance, err := customers.New(srv.URL, &fakeSession{token: "access-1", info: tc.info}).WalletBalance(context.Background())
			require.NoError(t, err)
			require.Equal(t, "100.00", balance.RealCash)
			require.Equal(t, 2, balance.RechargeCount)
		})
	}
}

func TestWalletBalance_Errors(t *testing.T) {
	c := customers.New("http://unused.invalid", &fakeSession{token: "access-1", info: &authmodel.UserInfo{}})
	_, err := c.WalletBalance(context.Background())
	require.ErrorIs(t, err, errors.ErrCustomerIDMissing)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "wallet not found"}`))
	}))
	defer srv.Close()

	_, err = customers.New(srv.URL, &fakeSession{token: "access-1", info: &authmodel.UserInfo{UserID: 42}}).WalletBalance(context.Background())
	require.EqualError(t, err, "wallet not found")
}
