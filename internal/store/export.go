package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"taxreport/pkg/models"
)

// ReadExport decodes a JSON array of charge records as written by the
// processor export job.
func ReadExport(r io.Reader) ([]models.ChargeRecord, error) {
	const op = "ReadExport"

	var charges []models.ChargeRecord
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&charges); err != nil {
		return nil, fmt.Errorf("%s: failed to decode charges: %w", op, err)
	}

	for i := range charges {
		if strings.TrimSpace(charges[i].ID) == "" {
			return nil, fmt.Errorf("%s: charge at index %d has no id", op, i)
		}
		if charges[i].Created.IsZero() {
			return nil, fmt.Errorf("%s: charge %s has no creation time", op, charges[i].ID)
		}
	}

	return charges, nil
}
