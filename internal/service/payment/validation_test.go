package payment

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/swiftdash/payments-service/internal/domain"
)

func TestProcessPaymentRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ProcessPaymentRequest
		wantErr error
	}{
		{
			name: "valid request",
			req: ProcessPaymentRequest{
				OfferID:       uuid.New(),
				Amount:        10000,
				Currency:      domain.CurrencyUSD,
				PaymentMethod: "card",
			},
		},
		{
			name: "valid with method details and metadata",
			req: ProcessPaymentRequest{
				OfferID:              uuid.New(),
				Amount:               500,
				Currency:             domain.CurrencyEUR,
				PaymentMethod:        "wallet",
				PaymentMethodDetails: json.RawMessage(`{"wallet_id":"w_1"}`),
				Metadata:             json.RawMessage(`{"campaign":"spring"}`),
			},
		},
		{
			name: "amount zero",
			req: ProcessPaymentRequest{
				OfferID:       uuid.New(),
				Amount:        0,
				Currency:      domain.CurrencyUSD,
				PaymentMethod: "card",
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "amount negative",
			req: ProcessPaymentRequest{
				OfferID:       uuid.New(),
				Amount:        -100,
				Currency:      domain.CurrencyUSD,
				PaymentMethod: "card",
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "unknown currency",
			req: ProcessPaymentRequest{
				OfferID:       uuid.New(),
				Amount:        1000,
				Currency:      "XAU",
				PaymentMethod: "card",
			},
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name: "missing payment method",
			req: ProcessPaymentRequest{
				OfferID:  uuid.New(),
				Amount:   1000,
				Currency: domain.CurrencyGBP,
			},
			wantErr: domain.ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestRoleFilter(t *testing.T) {
	userID := uuid.New()

	f, err := roleFilter(userID, RoleRider)
	require.NoError(t, err)
	require.NotNil(t, f.RiderID)
	require.Equal(t, userID, *f.RiderID)
	require.Nil(t, f.BusinessID)

	f, err = roleFilter(userID, RoleBusiness)
	require.NoError(t, err)
	require.NotNil(t, f.BusinessID)
	require.Equal(t, userID, *f.BusinessID)
	require.Nil(t, f.RiderID)

	_, err = roleFilter(userID, "courier")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
