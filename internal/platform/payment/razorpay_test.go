package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stayhub-wallet-ledger/internal/domain/payment"
)

type MockRazorpayAPI struct {
	mock.Mock
}

func (m *MockRazorpayAPI) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockRazorpayAPI) OrderPayments(orderID string) (map[string]interface{}, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockRazorpayAPI) CapturePayment(paymentID string, amount int, currency string) (map[string]interface{}, error) {
	args := m.Called(paymentID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func newRazorpayTestGateway(api razorpayAPI) *RazorpayGateway {
	gw := NewRazorpayGateway("rzp_test_key", "secret", "whsec")
	gw.api = api
	return gw
}

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	api := &MockRazorpayAPI{}
	api.On("CreateOrder", mock.MatchedBy(func(data map[string]interface{}) bool {
		return data["amount"] == int64(75000) && data["currency"] == "INR"
	})).Return(map[string]interface{}{"id": "order_1", "status": "created"}, nil)

	gw := newRazorpayTestGateway(api)
	order, err := gw.CreateOrder(context.Background(), payment.OrderRequest{Amount: 75000, Currency: "inr", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, "rzp_test_key", order.ClientKey)
	assert.Equal(t, ProviderRazorpay, order.Provider)
	api.AssertExpectations(t)
}

func TestRazorpayGateway_CaptureOrder(t *testing.T) {
	t.Run("captures authorized payment", func(t *testing.T) {
		api := &MockRazorpayAPI{}
		api.On("OrderPayments", "order_1").Return(map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"id": "pay_fail", "status": "failed", "amount": float64(75000), "currency": "INR"},
				map[string]interface{}{"id": "pay_1", "status": "authorized", "amount": float64(75000), "currency": "INR"},
			},
		}, nil)
		api.On("CapturePayment", "pay_1", 75000, "INR").Return(map[string]interface{}{
			"id": "pay_1", "status": "captured", "amount": float64(75000), "currency": "INR",
			"email": "guest@example.com", "notes": map[string]interface{}{"user_id": "user-1"},
		}, nil)

		capture, err := newRazorpayTestGateway(api).CaptureOrder(context.Background(), "order_1")
		require.NoError(t, err)
		assert.True(t, capture.Completed())
		assert.Equal(t, "pay_1", capture.ProviderTransactionID)
		assert.Equal(t, int64(75000), capture.CapturedAmount)
		assert.Equal(t, "user-1", capture.UserID)
		api.AssertExpectations(t)
	})

	t.Run("already captured", func(t *testing.T) {
		api := &MockRazorpayAPI{}
		api.On("OrderPayments", "order_2").Return(map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"id": "pay_2", "status": "captured", "amount": float64(100), "currency": "INR"},
			},
		}, nil)

		capture, err := newRazorpayTestGateway(api).CaptureOrder(context.Background(), "order_2")
		require.NoError(t, err)
		assert.True(t, capture.Completed())
		api.AssertNotCalled(t, "CapturePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nothing paid yet", func(t *testing.T) {
		api := &MockRazorpayAPI{}
		api.On("OrderPayments", "order_3").Return(map[string]interface{}{"items": []interface{}{}}, nil)

		capture, err := newRazorpayTestGateway(api).CaptureOrder(context.Background(), "order_3")
		require.NoError(t, err)
		assert.Equal(t, payment.CaptureStatusPending, capture.Status)
	})

	t.Run("api error", func(t *testing.T) {
		api := &MockRazorpayAPI{}
		api.On("OrderPayments", "order_4").Return(nil, errors.New("BAD_REQUEST_ERROR"))

		_, err := newRazorpayTestGateway(api).CaptureOrder(context.Background(), "order_4")
		assert.ErrorContains(t, err, "failed to fetch Razorpay order payments")
	})
}

func signRazorpay(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayGateway_ParseWebhook(t *testing.T) {
	gw := NewRazorpayGateway("rzp_test_key", "secret", "whsec")

	captured := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_5","order_id":"order_5","amount":50000,"currency":"INR","status":"captured","email":"g@example.com","notes":{"user_id":"user-5"}}}}}`)

	t.Run("valid", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", signRazorpay(captured, "whsec"))

		n, err := gw.ParseWebhook(captured, headers)
		require.NoError(t, err)
		assert.Equal(t, "pay_5", n.ProviderTransactionID)
		assert.Equal(t, "order_5", n.OrderID)
		assert.Equal(t, "user-5", n.UserID)
		assert.Equal(t, int64(50000), n.Amount)
		assert.Equal(t, "COMPLETED", n.Status)
	})

	t.Run("tampered", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", signRazorpay(captured, "other"))

		_, err := gw.ParseWebhook(captured, headers)
		assert.ErrorIs(t, err, payment.ErrInvalidWebhookSignature)
	})

	t.Run("other event", func(t *testing.T) {
		body := []byte(`{"event":"order.paid","payload":{}}`)
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", signRazorpay(body, "whsec"))

		_, err := gw.ParseWebhook(body, headers)
		assert.ErrorIs(t, err, payment.ErrIgnoredWebhookEvent)
	})
}

func TestRazorpayNotes_EmptyArray(t *testing.T) {
	var p razorpayPayment
	require.NoError(t, remarshal(map[string]interface{}{"id": "pay_1", "notes": []interface{}{}}, &p))
	assert.Empty(t, p.Notes["user_id"])
}
