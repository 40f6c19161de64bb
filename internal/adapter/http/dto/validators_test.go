package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

// --- Binding validator tests ---

func validateStruct(v any) error {
	return binding.Validator.ValidateStruct(v)
}

func TestTaxIDValidator(t *testing.T) {
	valid := []string{
		"11144477735",
		"111.444.777-35",
		"529.982.247-25",
	}
	for _, taxID := range valid {
		req := RegisterRequest{Name: "Alice", TaxID: taxID, Password: "password123"}
		assert.NoError(t, validateStruct(&req), "tax id %q should pass", taxID)
	}

	invalid := []string{
		"",
		"123",
		"111444777350", // 12 digits
		"1114447773a",  // non-digit
		"00000000000",  // repeated digits
		"99999999999",  // repeated digits
		"11144477736",  // bad check digit
	}
	for _, taxID := range invalid {
		req := RegisterRequest{Name: "Alice", TaxID: taxID, Password: "password123"}
		assert.Error(t, validateStruct(&req), "tax id %q should fail", taxID)
	}
}

func TestMoneyValidator(t *testing.T) {
	valid := []string{"0.01", "1", "100.50", "99999.99"}
	for _, amount := range valid {
		req := DepositRequest{Amount: amount}
		assert.NoError(t, validateStruct(&req), "amount %q should pass", amount)
	}

	invalid := []string{"0", "-1", "0.001", "1.005", "abc"}
	for _, amount := range invalid {
		req := DepositRequest{Amount: amount}
		assert.Error(t, validateStruct(&req), "amount %q should fail", amount)
	}
}

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Name:     "  Alice  ",
		TaxID:    " 11144477735 ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Alice", req.Name)
	assert.Equal(t, "11144477735", req.TaxID)
	assert.Equal(t, "pass1234", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	desc := "lunch <script>alert('x')</script> money"
	req := TransferRequest{
		RecipientTaxID: "52998224725",
		Amount:         "30.00",
		Description:    &desc,
	}
	SanitizeStruct(&req)

	assert.Contains(t, *req.Description, "&lt;script&gt;")
	assert.NotContains(t, *req.Description, "<script>")
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := DepositRequest{Amount: "10.00", Description: nil}
	SanitizeStruct(&req)
	assert.Nil(t, req.Description)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := LoginRequest{TaxID: " 11144477735 ", Password: "x"}
	SanitizeStruct(req) // value, not pointer: nothing happens
	assert.Equal(t, " 11144477735 ", req.TaxID)
}
