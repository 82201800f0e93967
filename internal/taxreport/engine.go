package taxreport

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"taxreport/pkg/models"
)

// Engine folds charge records into a ReportPayload. It has no state besides
// its country lookup and is safe for concurrent use.
type Engine struct {
	countries CountryLookup
}

// NewEngine creates an engine that resolves countries with the given lookup.
func NewEngine(countries CountryLookup) *Engine {
	return &Engine{countries: countries}
}

// ResolveCountry maps a raw country field to an ISO alpha-2 code.
// Known codes are normalized to upper case so that "de" and "DE" share one
// bucket. Names are looked up and anything else resolves to UnknownCountry.
func (e *Engine) ResolveCountry(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || e.countries == nil {
		return UnknownCountry
	}
	if code := strings.ToUpper(s); e.countries.IsCode(code) {
		return code
	}
	if code, ok := e.countries.CodeByName(s); ok {
		return code
	}
	return UnknownCountry
}

// chargeCountry resolves the country of a charge, falling back to the
// payment source country when the charge country is unusable.
func (e *Engine) chargeCountry(charge *models.ChargeRecord) string {
	if country := e.ResolveCountry(charge.Country); country != UnknownCountry {
		return country
	}
	return e.ResolveCountry(charge.SourceCountry)
}

// RefundedAmount is the sum of refund face amounts of a charge.
func RefundedAmount(charge *models.ChargeRecord) int64 {
	return lo.SumBy(charge.Refunds, func(r models.Refund) int64 { return r.Amount })
}

// RefundSettlementTotal is the sum of the settled amounts of a charge's refunds.
// It usually equals RefundedAmount but diverges when the refund settlement
// carries conversion or fee adjustments.
func RefundSettlementTotal(charge *models.ChargeRecord) int64 {
	return lo.SumBy(charge.Refunds, func(r models.Refund) int64 { return r.Settlement.Amount })
}

// NetAmount is the gross settlement amount less refund face amounts.
// The result is negative when more was refunded than settled.
func NetAmount(charge *models.ChargeRecord) int64 {
	return charge.Settlement.Amount - RefundedAmount(charge)
}

// Aggregate builds the report payload for the given charges.
//
// Charges without an owner are skipped. The per-country breakdown nets refunds
// by their settlement amount while the per-tax-number breakdown nets them by
// face amount; the processor's own tax reporting reconciles against the latter.
// Scalar totals are gross and never net refunds.
func (e *Engine) Aggregate(charges []models.ChargeRecord) (*ReportPayload, error) {
	const op = "Aggregate"

	enriched := make([]EnrichedCharge, 0, len(charges))
	skipped := 0
	for i := range charges {
		charge := &charges[i]
		if !charge.HasOwner() {
			skipped++
			continue
		}
		enriched = append(enriched, EnrichedCharge{
			Charge:    charge.Clone(),
			Country:   e.chargeCountry(charge),
			TaxNumber: charge.TaxNumberValue(),
		})
	}

	if len(enriched) == 0 {
		details := "input is empty"
		if skipped > 0 {
			details = fmt.Sprintf("all %d charges lack an owner", skipped)
		}
		return nil, NewAggregationError(op, ErrEmptyInput, details)
	}

	currency := enriched[0].Charge.Settlement.Currency

	return &ReportPayload{
		Charges: enriched,
		Totals: ReportTotals{
			TransactionVolume: totalTransactionVolume(enriched, currency),
			FeeVolume:         totalFeeVolume(enriched, currency),
			VolumeByCountry:   volumeByCountry(enriched),
		},
		TaxNumberSummaries: volumePerTaxNumber(enriched),
		Skipped:            skipped,
		CurrencyMismatches: currencyMismatches(enriched, currency),
	}, nil
}

func totalTransactionVolume(charges []EnrichedCharge, currency string) Money {
	var sum int64
	for i := range charges {
		sum += charges[i].Charge.Settlement.Amount
	}
	return Money{Amount: toMajor(sum), Currency: strings.ToUpper(currency)}
}

func totalFeeVolume(charges []EnrichedCharge, currency string) Money {
	var sum int64
	for i := range charges {
		sum += charges[i].Charge.Settlement.Fee
	}
	return Money{Amount: toMajor(sum), Currency: strings.ToUpper(currency)}
}

func volumeByCountry(charges []EnrichedCharge) map[string]decimal.Decimal {
	running := make(map[string]int64)
	for i := range charges {
		ch := &charges[i]
		value := running[ch.Country]
		value -= RefundSettlementTotal(&ch.Charge)
		running[ch.Country] = value + ch.Charge.Settlement.Amount
	}

	result := make(map[string]decimal.Decimal, len(running))
	for country, minor := range running {
		result[country] = toMajor(minor)
	}
	return result
}

func volumePerTaxNumber(charges []EnrichedCharge) []TaxNumberSummary {
	type group struct {
		first *EnrichedCharge
		net   int64
	}

	var order []string
	groups := make(map[string]*group)
	for i := range charges {
		ch := &charges[i]
		if ch.TaxNumber == "" {
			continue
		}
		g, ok := groups[ch.TaxNumber]
		if !ok {
			g = &group{first: ch}
			groups[ch.TaxNumber] = g
			order = append(order, ch.TaxNumber)
		}
		g.net += NetAmount(&ch.Charge)
	}

	result := make([]TaxNumberSummary, 0, len(order))
	for _, taxNumber := range order {
		g := groups[taxNumber]
		result = append(result, TaxNumberSummary{
			TaxNumber: taxNumber,
			Amount:    toMajor(g.net),
			Currency:  g.first.Charge.Settlement.Currency,
			Country:   ownerCountry(&g.first.Charge),
		})
	}
	return result
}

// ownerCountry is the owner declared country or the marked source country.
func ownerCountry(charge *models.ChargeRecord) string {
	if charge.Owner != nil && strings.TrimSpace(charge.Owner.Country) != "" {
		return charge.Owner.Country
	}
	return sourceCountryMarker + charge.SourceCountry
}

func currencyMismatches(charges []EnrichedCharge, currency string) []string {
	var ids []string
	for i := range charges {
		ch := &charges[i].Charge
		mismatch := !strings.EqualFold(ch.Settlement.Currency, currency)
		for _, r := range ch.Refunds {
			if r.Settlement.Currency != "" && !strings.EqualFold(r.Settlement.Currency, currency) {
				mismatch = true
			}
		}
		if mismatch {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

// toMajor converts minor units to a major unit decimal. decimal.New scales by
// a power of ten so the result is exact.
func toMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
