package taxreport_test

import (
	"errors"
	"fmt"
	"log"

	"taxreport/internal/country"
	"taxreport/internal/taxreport"
	"taxreport/pkg/models"
)

// Example demonstrates aggregating a year of charges into report totals.
func Example() {
	// Load the ISO country table used to normalize charge countries
	countries, err := country.Load()
	if err != nil {
		log.Fatal(err)
	}

	engine := taxreport.NewEngine(countries)

	taxNumber := "DE123"
	charges := []models.ChargeRecord{
		{
			ID:         "ch_1",
			Country:    "Germany",
			TaxNumber:  &taxNumber,
			Owner:      &models.Owner{ID: "cus_1", Country: "DE"},
			Settlement: models.Settlement{Amount: 10000, Fee: 290, Currency: "eur"},
		},
		{
			ID:         "ch_2",
			Country:    "FR",
			TaxNumber:  &taxNumber,
			Owner:      &models.Owner{ID: "cus_2", Country: "FR"},
			Settlement: models.Settlement{Amount: 5000, Fee: 150, Currency: "eur"},
			Refunds: []models.Refund{
				{ID: "re_1", Amount: 1000, Settlement: models.Settlement{Amount: 1000, Currency: "eur"}},
			},
		},
	}

	payload, err := engine.Aggregate(charges)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Transaction volume:", payload.Totals.TransactionVolume)
	fmt.Println("Fees:", payload.Totals.FeeVolume)
	for _, code := range payload.Totals.Countries() {
		fmt.Printf("%s: %s\n", code, payload.Totals.VolumeByCountry[code].StringFixed(2))
	}
	for _, s := range payload.TaxNumberSummaries {
		fmt.Printf("%s (%s): %s %s\n", s.TaxNumber, s.Country, s.Amount.StringFixed(2), s.Currency)
	}

	// Output:
	// Transaction volume: EUR 150.00
	// Fees: EUR 4.40
	// DE: 100.00
	// FR: 40.00
	// DE123 (DE): 140.00 eur
}

// ExampleEngine_Aggregate_empty demonstrates the error returned when there is nothing to report.
func ExampleEngine_Aggregate_empty() {
	countries, err := country.Load()
	if err != nil {
		log.Fatal(err)
	}

	_, err = taxreport.NewEngine(countries).Aggregate(nil)
	if errors.Is(err, taxreport.ErrEmptyInput) {
		fmt.Println("nothing to report:", err)
	}

	// Output:
	// nothing to report: taxreport: Aggregate failed: input is empty: no charges with an owner to aggregate
}
