package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

type sample struct {
	Phone     string          `json:"phone" validate:"required,phone"`
	Amount    decimal.Decimal `json:"amount" validate:"money"`
	MeterType string          `json:"meter_type" validate:"meter_type"`
}

func TestValidate(t *testing.T) {
	ok := sample{Phone: "08031234567", Amount: decimal.RequireFromString("100.50"), MeterType: "prepaid"}
	if errs := Validate(ok); errs != nil {
		t.Fatalf("expected valid, got %v", errs)
	}

	bad := sample{Phone: "12345", Amount: decimal.RequireFromString("-1"), MeterType: "smart"}
	errs := Validate(bad)
	for _, field := range []string{"phone", "amount", "meter_type"} {
		if _, found := errs[field]; !found {
			t.Errorf("expected error for %s, got %v", field, errs)
		}
	}
}

func TestMoneyRejectsSubKobo(t *testing.T) {
	errs := Validate(sample{Phone: "+2348031234567", Amount: decimal.RequireFromString("10.005")})
	if _, found := errs["amount"]; !found {
		t.Fatalf("expected amount error, got %v", errs)
	}
}
