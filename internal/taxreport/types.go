// Package taxreport aggregates payment charges into a periodic tax report.
//
// The package has two layers:
//   - Engine, a pure fold over charge records that produces a ReportPayload
//     (gross totals, net volume per country and net volume per tax number).
//   - Pipeline, which loads charges for a period, runs the engine and hands the
//     result to rendering, publishing and delivery collaborators.
//
// Monetary Values:
//   - All arithmetic is done on int64 minor units (cents).
//   - Amounts are converted to major units exactly once, when the payload is
//     built, using decimal.New(minor, -2) so no float rounding is involved.
//   - A report run assumes a single settlement currency. Charges in any other
//     currency are listed in ReportPayload.CurrencyMismatches.
package taxreport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"taxreport/pkg/models"
)

// UnknownCountry is the bucket for charges whose country cannot be resolved.
const UnknownCountry = "Unknown Country"

// sourceCountryMarker prefixes the payment source country when a tax number
// group has no owner declared country.
const sourceCountryMarker = "CC: "

// CountryLookup resolves raw country strings to ISO 3166-1 alpha-2 codes.
type CountryLookup interface {
	// IsCode reports whether s is a known alpha-2 code.
	IsCode(s string) bool

	// CodeByName returns the alpha-2 code for a country name (or alpha-3 code).
	CodeByName(name string) (string, bool)
}

// Money is a major-unit amount labelled with its currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// String formats the amount with the currency as unit prefix, e.g. "EUR 1,234,567.89".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, FormatAmount(m.Amount))
}

// FormatAmount renders a major-unit amount with two decimals and a comma
// between thousands groups, e.g. "-1,234.50".
func FormatAmount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac := fixed[:len(fixed)-3], fixed[len(fixed)-3:]

	var b strings.Builder
	if d.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// ReportTotals contains the report wide figures.
type ReportTotals struct {
	// TransactionVolume is the sum of gross settlement amounts. Refunds are not netted.
	TransactionVolume Money `json:"transaction_volume"`

	// FeeVolume is the sum of settlement fees.
	FeeVolume Money `json:"fee_volume"`

	// VolumeByCountry is the net settled volume per resolved country.
	VolumeByCountry map[string]decimal.Decimal `json:"volume_by_country"`
}

// Countries returns the keys of VolumeByCountry in sorted order.
func (t ReportTotals) Countries() []string {
	keys := make([]string, 0, len(t.VolumeByCountry))
	for k := range t.VolumeByCountry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TaxNumberSummary is the net volume of all charges sharing one tax number.
type TaxNumberSummary struct {
	TaxNumber string          `json:"tax_number"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Country   string          `json:"country"`
}

// EnrichedCharge is a charge together with the grouping keys computed for it.
type EnrichedCharge struct {
	Charge    models.ChargeRecord `json:"charge"`
	Country   string              `json:"country"`
	TaxNumber string              `json:"tax_number,omitempty"`
}

// ReportPayload is the result of one aggregation pass.
type ReportPayload struct {
	Charges            []EnrichedCharge   `json:"charges"`
	Totals             ReportTotals       `json:"totals"`
	TaxNumberSummaries []TaxNumberSummary `json:"tax_number_summaries"`

	// Skipped is the number of input charges without an owner.
	Skipped int `json:"skipped"`

	// CurrencyMismatches lists ids of charges whose settlement (or refund
	// settlement) currency differs from the currency of the first charge.
	CurrencyMismatches []string `json:"currency_mismatches,omitempty"`
}

// HasMixedCurrency reports whether any charge was settled in a different currency.
func (p *ReportPayload) HasMixedCurrency() bool {
	return len(p.CurrencyMismatches) > 0
}

// Period is the half-open date range [From, To) a report covers.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// YearPeriod returns the calendar year y in UTC.
func YearPeriod(year int) Period {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(1, 0, 0)}
}

// Validate checks that the period is non-empty.
func (p Period) Validate() error {
	if p.From.IsZero() || p.To.IsZero() {
		return fmt.Errorf("period bounds must be set")
	}
	if !p.From.Before(p.To) {
		return fmt.Errorf("period start %s is not before end %s", p.From.Format(dateLayout), p.To.Format(dateLayout))
	}
	return nil
}

// Label returns a human readable label, the year for calendar years.
func (p Period) Label() string {
	if p.From.Month() == time.January && p.From.Day() == 1 && p.To.Equal(p.From.AddDate(1, 0, 0)) {
		return fmt.Sprintf("%d", p.From.Year())
	}
	return fmt.Sprintf("%s to %s", p.From.Format(dateLayout), p.To.AddDate(0, 0, -1).Format(dateLayout))
}

// Slug returns a filename friendly form of the period.
func (p Period) Slug() string {
	return strings.ReplaceAll(fmt.Sprintf("%s_%s", p.From.Format(dateLayout), p.To.Format(dateLayout)), "-", "")
}

const dateLayout = "2006-01-02"

// ParsePeriod builds a period from either a year or an inclusive from/to
// date pair (YYYY-MM-DD). A year of zero with both dates empty is an error.
func ParsePeriod(year int, from, to string) (Period, error) {
	if year != 0 {
		if from != "" || to != "" {
			return Period{}, fmt.Errorf("year and from/to are mutually exclusive")
		}
		if year < 1970 || year > 9999 {
			return Period{}, fmt.Errorf("year %d out of range", year)
		}
		return YearPeriod(year), nil
	}

	if from == "" || to == "" {
		return Period{}, fmt.Errorf("either a year or both from and to are required")
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return Period{}, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return Period{}, fmt.Errorf("invalid to date %q: %w", to, err)
	}

	p := Period{From: start, To: end.AddDate(0, 0, 1)}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Report is a payload together with the run metadata needed to render it.
type Report struct {
	RunID       uuid.UUID      `json:"run_id"`
	Period      Period         `json:"period"`
	GeneratedAt time.Time      `json:"generated_at"`
	Payload     *ReportPayload `json:"payload"`
}
