package holdings

// AuditCheckpoint compares a total printed in the filing with the sum
// derived from the extracted holdings.
type AuditCheckpoint struct {
	CheckpointName  string `json:"checkpoint_name"`
	ReportedValue   int64  `json:"reported_value"`
	CalculatedValue int64  `json:"calculated_value"`
	Variance        int64  `json:"variance"`
	Status          string `json:"status"` // MATCH or MISMATCH
}

const (
	StatusMatch    = "MATCH"
	StatusMismatch = "MISMATCH"
)

func newCheckpoint(name string, reported, calculated int64) AuditCheckpoint {
	cp := AuditCheckpoint{
		CheckpointName:  name,
		ReportedValue:   reported,
		CalculatedValue: calculated,
		Variance:        calculated - reported,
		Status:          StatusMatch,
	}
	if cp.Variance != 0 {
		cp.Status = StatusMismatch
	}
	return cp
}

// DeriveTotals sums holding values per sector and overall. Nil values
// count as zero.
func DeriveTotals(holdings []HoldingRecord) (map[string]int64, int64) {
	bySector := make(map[string]int64)
	var grand int64
	for _, h := range holdings {
		var v int64
		if h.Value != nil {
			v = *h.Value
		}
		bySector[h.Sector] += v
		grand += v
	}
	return bySector, grand
}

// Reconcile re-normalizes the sector of every holding in place, then checks
// the reported grand total and every reported sector subtotal against the
// derived sums. The first mismatch aborts with ErrReconciliation; the
// checkpoints evaluated so far are returned either way.
func Reconcile(holdings []HoldingRecord, totals []SectorTotal, grandTotal *int64) ([]AuditCheckpoint, error) {
	for i := range holdings {
		holdings[i].Sector = NormalizeSector(holdings[i].Sector)
	}
	derived, derivedGrand := DeriveTotals(holdings)

	if grandTotal == nil {
		return nil, newError(ErrReconciliation, "no %q total found in schedule", TotalCommonStocks)
	}
	checkpoints := make([]AuditCheckpoint, 0, len(totals)+1)
	cp := newCheckpoint(TotalCommonStocks, *grandTotal, derivedGrand)
	checkpoints = append(checkpoints, cp)
	if cp.Status != StatusMatch {
		return checkpoints, newError(ErrReconciliation, "%s reported %d, holdings sum to %d", TotalCommonStocks, *grandTotal, derivedGrand)
	}

	for _, t := range totals {
		sector := NormalizeSector(t.Sector)
		cp := newCheckpoint(sector, t.TotalValue, derived[sector])
		checkpoints = append(checkpoints, cp)
		if cp.Status != StatusMatch {
			return checkpoints, newError(ErrReconciliation, "sector %q reported %d, holdings sum to %d", sector, t.TotalValue, derived[sector])
		}
	}
	return checkpoints, nil
}
