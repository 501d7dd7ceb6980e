// Package checkout defines the checkout state a session can park and restore,
// e.g. across a login redirect.
package checkout

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Line is one item of a pending checkout.
type Line struct {
	ListingID string          `json:"listingId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=1,lte=999"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// PendingCheckout is a checkout form the user had filled in before being
// redirected (typically to log in).
type PendingCheckout struct {
	AdvertiserID    string    `json:"advertiserId" validate:"required"`
	Lines           []Line    `json:"lines" validate:"required,min=1,dive"`
	DeliveryMethod  string    `json:"deliveryMethod,omitempty" validate:"omitempty,oneof=pickup shipping"`
	DeliveryAddress string    `json:"deliveryAddress,omitempty" validate:"required_if=DeliveryMethod shipping"`
	Notes           string    `json:"notes,omitempty" validate:"max=500"`
	SavedAt         time.Time `json:"savedAt"`
}

// Total is the sum of every line's unit price times quantity.
func (p *PendingCheckout) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Validate checks the payload before it is stored.
func (p *PendingCheckout) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	for _, l := range p.Lines {
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit price must not be negative", domain.ErrValidation)
		}
	}
	return nil
}

// PendingPurchase is a "buy now" intent recorded for a single listing.
type PendingPurchase struct {
	ListingID string    `json:"listingId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=999"`
	ReturnTo  string    `json:"returnTo,omitempty" validate:"omitempty,startswith=/"`
	SavedAt   time.Time `json:"savedAt"`
}

// Validate checks the payload before it is stored.
func (p *PendingPurchase) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	return nil
}

// Fresh reports whether something saved at savedAt is still usable at now
// given the staleness window ttl. The window is inclusive.
func Fresh(savedAt, now time.Time, ttl time.Duration) bool {
	if savedAt.IsZero() {
		return false
	}
	return now.Sub(savedAt) <= ttl
}
