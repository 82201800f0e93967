package models

import (
	"strings"
	"time"
)

type ChargeRecord struct {
	// Core identifiers
	ID      string    `json:"id"`      // Payment processor charge id
	Created time.Time `json:"created"` // When the charge was made

	// Location
	Country       string `json:"country"`        // ISO code or free-text country name as delivered by the processor
	SourceCountry string `json:"source_country"` // Country of the payment source (card), used as a fallback hint

	// Tax
	TaxNumber *string `json:"tax_number,omitempty"` // Payer supplied tax identifier (nil if absent)

	// Payer (nil if the charge could not be linked to an account)
	Owner *Owner `json:"owner,omitempty"`

	// Amounts (stored in minor units to avoid float issues)
	Settlement Settlement `json:"settlement"`
	Refunds    []Refund   `json:"refunds,omitempty"`
}

type Owner struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country"` // Owner declared country (may be empty)
}

// Settlement is the balance transaction of a charge or refund.
type Settlement struct {
	Amount   int64  `json:"amount"`   // Settled amount in minor units
	Fee      int64  `json:"fee"`      // Processor fee in minor units
	Currency string `json:"currency"` // Currency code as delivered ("eur", "usd", ...)
}

type Refund struct {
	ID         string     `json:"id"`
	Amount     int64      `json:"amount"` // Refund face amount in minor units
	Settlement Settlement `json:"settlement"`
}

// HasOwner reports whether the charge is linked to a payer.
func (c *ChargeRecord) HasOwner() bool {
	return c.Owner != nil
}

// TaxNumberValue returns the trimmed tax number, or "" when absent.
func (c *ChargeRecord) TaxNumberValue() string {
	if c.TaxNumber == nil {
		return ""
	}
	return strings.TrimSpace(*c.TaxNumber)
}

// Clone returns a copy that shares no mutable state with c.
func (c ChargeRecord) Clone() ChargeRecord {
	if c.TaxNumber != nil {
		tn := *c.TaxNumber
		c.TaxNumber = &tn
	}
	if c.Owner != nil {
		owner := *c.Owner
		c.Owner = &owner
	}
	if c.Refunds != nil {
		refunds := make([]Refund, len(c.Refunds))
		copy(refunds, c.Refunds)
		c.Refunds = refunds
	}
	return c
}
