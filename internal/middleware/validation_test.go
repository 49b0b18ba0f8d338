package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOrderPayload struct {
	Details []testLinePayload `json:"details" validate:"required,min=1,dive"`
}

type testLinePayload struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

func decodeInto(t *testing.T, payload any, v any) error {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(body))
	return DecodeAndValidate(r, v)
}

func TestDecodeAndValidate_ValidPayload(t *testing.T) {
	payload := map[string]any{
		"details": []map[string]any{
			{"product_id": "7f9c24e5-43b6-4b72-9a7e-0c6f6a2f9d11", "quantity": 2},
		},
	}

	var req testOrderPayload
	err := decodeInto(t, payload, &req)

	assert.NoError(t, err)
	assert.Len(t, req.Details, 1)
}

func TestDecodeAndValidate_MissingDetails(t *testing.T) {
	var req testOrderPayload
	err := decodeInto(t, map[string]any{}, &req)

	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.NotEmpty(t, formatted)
	assert.Equal(t, "Details", formatted[0].Field)
	assert.Equal(t, "This field is required", formatted[0].Message)
}

func TestDecodeAndValidate_EmptyDetails(t *testing.T) {
	payload := map[string]any{"details": []map[string]any{}}

	var req testOrderPayload
	err := decodeInto(t, payload, &req)

	assert.Error(t, err)
}

func TestDecodeAndValidate_InvalidProductID(t *testing.T) {
	payload := map[string]any{
		"details": []map[string]any{
			{"product_id": "not-a-uuid", "quantity": 1},
		},
	}

	var req testOrderPayload
	err := decodeInto(t, payload, &req)

	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.NotEmpty(t, formatted)
	assert.Equal(t, "Invalid UUID format", formatted[0].Message)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/orders", bytes.NewReader([]byte("{not json")))

	var req testOrderPayload
	err := DecodeAndValidate(r, &req)

	require.Error(t, err)
	// Decode errors are not validation errors
	assert.Empty(t, FormatValidationErrors(err))
}
