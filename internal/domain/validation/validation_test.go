package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Fields(t *testing.T) {
	tests := []struct {
		name  string
		check func(v *Validator)
		ok    bool
	}{
		{name: "name ok", check: func(v *Validator) { v.Name("name", "Ann") }, ok: true},
		{name: "name short", check: func(v *Validator) { v.Name("name", "Al") }},
		{name: "name blank", check: func(v *Validator) { v.Name("name", "   ") }},
		{name: "email ok", check: func(v *Validator) { v.Email("email", "ann@example.com") }, ok: true},
		{name: "email no tld", check: func(v *Validator) { v.Email("email", "ann@example") }},
		{name: "email spaces", check: func(v *Validator) { v.Email("email", "ann smith@example.com") }},
		{name: "email empty", check: func(v *Validator) { v.Email("email", "") }},
		{name: "phone empty is optional", check: func(v *Validator) { v.Phone("phone", "") }, ok: true},
		{name: "phone ok", check: func(v *Validator) { v.Phone("phone", "(555) 123-4567") }, ok: true},
		{name: "phone short", check: func(v *Validator) { v.Phone("phone", "555-1234") }},
		{name: "phone letters", check: func(v *Validator) { v.Phone("phone", "555-CALL-NOW") }},
		{name: "zip five", check: func(v *Validator) { v.Zip("zip", "02139") }, ok: true},
		{name: "zip plus four", check: func(v *Validator) { v.Zip("zip", "02139-4307") }, ok: true},
		{name: "zip short", check: func(v *Validator) { v.Zip("zip", "0213") }},
		{name: "zip letters", check: func(v *Validator) { v.Zip("zip", "SW1A 1AA") }},
		{name: "address ok", check: func(v *Validator) { v.MinLength("address1", "1 Elm", MinAddressLength) }, ok: true},
		{name: "address short", check: func(v *Validator) { v.MinLength("address1", "1 El", MinAddressLength) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Validator
			tt.check(&v)
			if tt.ok {
				assert.NoError(t, v.Err())
			} else {
				assert.Error(t, v.Err())
			}
		})
	}
}

func TestValidator_Card(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		card   Card
		failed []string
	}{
		{name: "valid", card: Card{Number: "4242 4242 4242 4242", Expiry: "03/26", CVC: "123"}},
		{name: "dashes allowed", card: Card{Number: "4242-4242-4242-4242", Expiry: "12/30", CVC: "999"}},
		{name: "short number", card: Card{Number: "4242 4242 4242", Expiry: "12/30", CVC: "123"}, failed: []string{"card.number"}},
		{name: "letters", card: Card{Number: "4242x24242424242", Expiry: "12/30", CVC: "123"}, failed: []string{"card.number"}},
		{name: "expired last month", card: Card{Number: "4242424242424242", Expiry: "02/26", CVC: "123"}, failed: []string{"card.expiry"}},
		{name: "bad month", card: Card{Number: "4242424242424242", Expiry: "13/30", CVC: "123"}, failed: []string{"card.expiry"}},
		{name: "bad format", card: Card{Number: "4242424242424242", Expiry: "2030-12", CVC: "123"}, failed: []string{"card.expiry"}},
		{name: "cvc four digits", card: Card{Number: "4242424242424242", Expiry: "12/30", CVC: "1234"}, failed: []string{"card.cvc"}},
		{name: "all blank", card: Card{}, failed: []string{"card.number", "card.expiry", "card.cvc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Validator
			v.Card("card.", tt.card, now)
			err := v.Err()
			if len(tt.failed) == 0 {
				require.NoError(t, err)
				return
			}

			var verr *Error
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, len(tt.failed))
			for _, f := range tt.failed {
				assert.True(t, verr.Has(f), "expected %s to fail", f)
			}
		})
	}
}

func TestValidator_ReportsAllFields(t *testing.T) {
	var v Validator
	v.Name("name", "A")
	v.Email("email", "nope")
	v.Phone("phone", "12")
	v.Zip("postalCode", "x")

	var verr *Error
	require.ErrorAs(t, v.Err(), &verr)
	assert.Len(t, verr.Fields, 4)
	assert.Contains(t, verr.Error(), "email: is not a valid email address")
}

func TestCard_Last4(t *testing.T) {
	assert.Equal(t, "4242", Card{Number: "4000 0000 0000 4242"}.Last4())
	assert.Equal(t, "", Card{Number: "12"}.Last4())
}
