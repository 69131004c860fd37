package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Inventory tracks lots of commodities with cost basis
type Inventory struct {
	// Map: commodity -> list of lots
	lots map[string][]*lot
}

// NewInventory creates a new inventory
func NewInventory() *Inventory {
	return &Inventory{
		lots: make(map[string][]*lot),
	}
}

// insufficientLotError signals that a lot or set of lots doesn't hold enough
// units to satisfy a requested reduction.
type insufficientLotError struct{ msg string }

func (e *insufficientLotError) Error() string { return e.msg }

// lotNotFoundError signals that a reducing posting's explicit cost/date/label
// selector matched no held lot.
type lotNotFoundError struct{ msg string }

func (e *lotNotFoundError) Error() string { return e.msg }

// ambiguousBookingError signals that a reducing posting with an empty cost
// spec ({}) matched more than one candidate lot under the STRICT booking
// method, which requires the posting to identify a single lot unambiguously.
type ambiguousBookingError struct{ msg string }

func (e *ambiguousBookingError) Error() string { return e.msg }

// costBasisMismatchError signals that a reducing posting's selector (date
// and/or label) matches a held lot, but the specified cost disagrees with
// the lot's stored cost.
type costBasisMismatchError struct {
	storedCost   decimal.Decimal
	requestCost  decimal.Decimal
	costCurrency string
	msg          string
}

func (e *costBasisMismatchError) Error() string { return e.msg }

// matchBySelector scans lots for one whose date/label selector matches spec
// but whose cost differs, distinguishing "wrong cost for a known lot" from
// "lot not found at all".
func matchBySelector(lots []*lot, spec *lotSpec) *lot {
	if spec == nil || spec.Cost == nil {
		return nil
	}
	for _, l := range lots {
		if l.Spec == nil {
			continue
		}
		selectorMatches := spec.Label != "" && l.Spec.Label == spec.Label
		if !selectorMatches && spec.Date != nil && l.Spec.Date != nil {
			selectorMatches = l.Spec.Date.Equal(spec.Date.Time)
		}
		if selectorMatches && l.Spec.Cost != nil && !l.Spec.Cost.Equal(*spec.Cost) {
			return l
		}
	}
	return nil
}

// Add adds an amount without cost basis
func (inv *Inventory) Add(commodity string, amount decimal.Decimal) {
	// Add as a lot without cost spec
	inv.AddLot(commodity, amount, nil)
}

// AddLot adds an amount with a specific cost basis
func (inv *Inventory) AddLot(commodity string, amount decimal.Decimal, spec *lotSpec) {
	// Find existing lot with matching spec
	lots := inv.lots[commodity]
	for _, lot := range lots {
		if lotSpecsMatch(lot.Spec, spec) {
			// Add to existing lot
			lot.Amount = lot.Amount.Add(amount)
			return
		}
	}

	// Create new lot
	newLot := newLot(commodity, amount, spec)
	inv.lots[commodity] = append(inv.lots[commodity], newLot)
}

// Get returns the total amount of a commodity (summing all lots)
func (inv *Inventory) Get(commodity string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range inv.lots[commodity] {
		total = total.Add(lot.Amount)
	}
	return total
}

// GetLots returns all lots for a commodity
func (inv *Inventory) GetLots(commodity string) []*lot {
	return inv.lots[commodity]
}

// ReduceLot reduces from a specific lot or uses booking method
func (inv *Inventory) ReduceLot(commodity string, amount decimal.Decimal, spec *lotSpec, bookingMethod string) error {
	// Reducing means amount should be negative
	if amount.GreaterThanOrEqual(decimal.Zero) {
		return fmt.Errorf("reduce amount must be negative, got %s", amount.String())
	}

	// Get absolute value for comparison
	reduceAmount := amount.Abs()

	// Empty spec {} means use booking method
	if spec != nil && spec.IsEmpty() {
		return inv.reduceWithBooking(commodity, reduceAmount, bookingMethod)
	}

	// Specific lot spec - find matching lot
	if spec != nil && spec.Cost != nil {
		return inv.reduceSpecificLot(commodity, reduceAmount, spec)
	}

	// No spec at all - treat as simple amount
	// Just add the negative amount to first available lot or create new lot
	inv.AddLot(commodity, amount, nil)
	return nil
}

// CanReduceLot reports whether ReduceLot would succeed, without mutating the
// inventory. Used by the validator to surface booking errors before any
// ledger state is changed.
func (inv *Inventory) CanReduceLot(commodity string, amount decimal.Decimal, spec *lotSpec, bookingMethod string) error {
	if amount.GreaterThanOrEqual(decimal.Zero) {
		return fmt.Errorf("reduce amount must be negative, got %s", amount.String())
	}

	reduceAmount := amount.Abs()

	if spec != nil && spec.IsEmpty() {
		return inv.canReduceWithBooking(commodity, reduceAmount, bookingMethod)
	}

	if spec != nil && spec.Cost != nil {
		return inv.canReduceSpecificLot(commodity, reduceAmount, spec)
	}

	return nil
}

// reduceSpecificLot reduces from a specific lot matching the spec
func (inv *Inventory) reduceSpecificLot(commodity string, amount decimal.Decimal, spec *lotSpec) error {
	lots := inv.lots[commodity]

	// Find matching lot
	for _, lot := range lots {
		if lotSpecsMatch(lot.Spec, spec) {
			// Check if sufficient amount
			if lot.Amount.LessThan(amount) {
				return &insufficientLotError{msg: fmt.Sprintf("insufficient amount in lot %s: have %s, need %s",
					spec.String(), lot.Amount.String(), amount.String())}
			}

			// Reduce from lot
			lot.Amount = lot.Amount.Sub(amount)

			// Remove lot if empty
			if lot.Amount.IsZero() {
				inv.removeLot(commodity, lot)
			}

			return nil
		}
	}

	if mismatch := matchBySelector(lots, spec); mismatch != nil {
		return &costBasisMismatchError{
			storedCost:   *mismatch.Spec.Cost,
			requestCost:  *spec.Cost,
			costCurrency: spec.CostCurrency,
			msg: fmt.Sprintf("cost basis mismatch: lot holds %s %s, posting specifies %s %s",
				mismatch.Spec.Cost.String(), mismatch.Spec.CostCurrency, spec.Cost.String(), spec.CostCurrency),
		}
	}

	return &lotNotFoundError{msg: fmt.Sprintf("lot not found: %s %s", commodity, spec.String())}
}

// canReduceSpecificLot is the read-only counterpart of reduceSpecificLot.
func (inv *Inventory) canReduceSpecificLot(commodity string, amount decimal.Decimal, spec *lotSpec) error {
	lots := inv.lots[commodity]
	for _, lot := range lots {
		if lotSpecsMatch(lot.Spec, spec) {
			if lot.Amount.LessThan(amount) {
				return &insufficientLotError{msg: fmt.Sprintf("insufficient amount in lot %s: have %s, need %s",
					spec.String(), lot.Amount.String(), amount.String())}
			}
			return nil
		}
	}

	if mismatch := matchBySelector(lots, spec); mismatch != nil {
		return &costBasisMismatchError{
			storedCost:   *mismatch.Spec.Cost,
			requestCost:  *spec.Cost,
			costCurrency: spec.CostCurrency,
			msg: fmt.Sprintf("cost basis mismatch: lot holds %s %s, posting specifies %s %s",
				mismatch.Spec.Cost.String(), mismatch.Spec.CostCurrency, spec.Cost.String(), spec.CostCurrency),
		}
	}

	return &lotNotFoundError{msg: fmt.Sprintf("lot not found: %s %s", commodity, spec.String())}
}

// reduceWithBooking reduces using booking method (FIFO, LIFO, HIFO, STRICT, NONE, AVERAGE).
// Assumes the booking method name itself has already been validated by validateOpen;
// an unsupported value here yields an error rather than a panic, since reduction
// must never crash on input the validator is supposed to have screened.
//
// Booking method handling:
//   - NONE: Adds negative amount without matching (allows mixed signs)
//   - AVERAGE: Merges all lots and recalculates average cost
//   - FIFO/LIFO/HIFO: Sorts lots according to the method and reduces in order
//   - STRICT: Requires the empty-spec reduction to match exactly one lot
func (inv *Inventory) reduceWithBooking(commodity string, amount decimal.Decimal, bookingMethod string) error {
	lots := inv.lots[commodity]

	if len(lots) == 0 {
		return &insufficientLotError{msg: fmt.Sprintf("no lots available for %s", commodity)}
	}

	// Handle NONE booking: just add the negative amount without matching
	if bookingMethod == "NONE" {
		// Add negative amount as a new lot (always create new lot, don't merge)
		// This allows mixed signs in the inventory
		newLot := newLot(commodity, amount.Neg(), nil)
		inv.lots[commodity] = append(inv.lots[commodity], newLot)
		return nil
	}

	// Handle AVERAGE booking: merge all lots, reduce, then keep single lot with average cost
	if bookingMethod == "AVERAGE" {
		return inv.reduceWithAverage(commodity, amount)
	}

	sortedLots, err := sortLotsForBooking(lots, bookingMethod)
	if err != nil {
		return err
	}

	// Reduce from lots in booking method order
	remaining := amount
	for _, lot := range sortedLots {
		if remaining.IsZero() {
			break
		}

		if lot.Amount.GreaterThanOrEqual(remaining) {
			// This lot has enough
			lot.Amount = lot.Amount.Sub(remaining)
			if lot.Amount.IsZero() {
				inv.removeLot(commodity, lot)
			}
			remaining = decimal.Zero
		} else {
			// Take all from this lot
			remaining = remaining.Sub(lot.Amount)
			lot.Amount = decimal.Zero
			inv.removeLot(commodity, lot)
		}
	}

	if !remaining.IsZero() {
		return &insufficientLotError{msg: fmt.Sprintf("insufficient total amount for %s: need %s more",
			commodity, remaining.String())}
	}

	return nil
}

// canReduceWithBooking is the read-only counterpart of reduceWithBooking.
func (inv *Inventory) canReduceWithBooking(commodity string, amount decimal.Decimal, bookingMethod string) error {
	lots := inv.lots[commodity]

	if len(lots) == 0 {
		return &insufficientLotError{msg: fmt.Sprintf("no lots available for %s", commodity)}
	}

	if bookingMethod == "NONE" {
		return nil
	}

	if bookingMethod == "AVERAGE" {
		return inv.canReduceWithAverage(commodity, amount)
	}

	sortedLots, err := sortLotsForBooking(lots, bookingMethod)
	if err != nil {
		return err
	}

	remaining := amount
	for _, lot := range sortedLots {
		if remaining.IsZero() {
			break
		}
		if lot.Amount.GreaterThanOrEqual(remaining) {
			remaining = decimal.Zero
		} else {
			remaining = remaining.Sub(lot.Amount)
		}
	}

	if !remaining.IsZero() {
		return &insufficientLotError{msg: fmt.Sprintf("insufficient total amount for %s: need %s more",
			commodity, remaining.String())}
	}

	return nil
}

// sortLotsForBooking returns a copy of lots ordered according to bookingMethod,
// or an error if the method can't resolve a candidate order (STRICT ambiguity,
// or a method name the validator should never have allowed through).
func sortLotsForBooking(lots []*lot, bookingMethod string) ([]*lot, error) {
	sorted := make([]*lot, len(lots))
	copy(sorted, lots)

	switch bookingMethod {
	case "FIFO", "":
		// FIFO: oldest first (lots without date come first); same-date lots
		// keep insertion order. An empty method is treated as FIFO, the
		// ledger's default.
		sort.SliceStable(sorted, func(i, j int) bool {
			iHasDate := sorted[i].Spec != nil && sorted[i].Spec.Date != nil
			jHasDate := sorted[j].Spec != nil && sorted[j].Spec.Date != nil

			// Both lack dates - maintain stable order (not less than)
			if !iHasDate && !jHasDate {
				return false
			}
			// i lacks date, j has date - i comes first
			if !iHasDate {
				return true
			}
			// j lacks date, i has date - j comes first
			if !jHasDate {
				return false
			}
			// Both have dates - compare chronologically (oldest first)
			return sorted[i].Spec.Date.Before(sorted[j].Spec.Date.Time)
		})
	case "LIFO":
		// LIFO: newest first (lots with dates come first, reverse chronological).
		// Reversing before a stable sort takes same-date lots in reverse
		// insertion order.
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			iHasDate := sorted[i].Spec != nil && sorted[i].Spec.Date != nil
			jHasDate := sorted[j].Spec != nil && sorted[j].Spec.Date != nil

			// Both lack dates - keep reversed insertion order (not less than)
			if !iHasDate && !jHasDate {
				return false
			}
			// i has date, j lacks date - i comes first (dated lots first for LIFO)
			if iHasDate && !jHasDate {
				return true
			}
			// j has date, i lacks date - j comes first
			if !iHasDate && jHasDate {
				return false
			}
			// Both have dates - compare reverse chronologically (newest first)
			return sorted[i].Spec.Date.After(sorted[j].Spec.Date.Time)
		})
	case "HIFO":
		// HIFO: highest per-unit cost first (lots without cost come last, they
		// carry no basis to prefer and would otherwise sort arbitrarily)
		sort.Slice(sorted, func(i, j int) bool {
			iCost, iHasCost := lotCost(sorted[i])
			jCost, jHasCost := lotCost(sorted[j])

			if !iHasCost && !jHasCost {
				return false
			}
			if !iHasCost {
				return false
			}
			if !jHasCost {
				return true
			}
			return iCost.GreaterThan(jCost)
		})
	case "STRICT":
		// STRICT requires the empty-spec {} reduction to identify a single
		// lot; more than one candidate is an ambiguous booking.
		if len(sorted) > 1 {
			return nil, &ambiguousBookingError{msg: fmt.Sprintf(
				"ambiguous reduction: %d lots match under STRICT booking", len(sorted))}
		}
	default:
		return nil, fmt.Errorf("unsupported booking method %q", bookingMethod)
	}

	return sorted, nil
}

// lotCost returns the lot's per-unit cost and whether it has one at all.
func lotCost(l *lot) (decimal.Decimal, bool) {
	if l.Spec == nil || l.Spec.Cost == nil {
		return decimal.Zero, false
	}
	return *l.Spec.Cost, true
}

// reduceWithAverage reduces using average cost basis
// After reduction, all lots are merged into a single lot with average cost
func (inv *Inventory) reduceWithAverage(commodity string, amount decimal.Decimal) error {
	lots := inv.lots[commodity]

	// Calculate total amount and total cost basis
	totalAmount := decimal.Zero
	totalCost := decimal.Zero
	var costCurrency string
	hasCostedLots := false

	for _, lot := range lots {
		totalAmount = totalAmount.Add(lot.Amount)

		// Track cost basis if lots have cost
		if lot.Spec != nil && lot.Spec.Cost != nil {
			hasCostedLots = true
			costCurrency = lot.Spec.CostCurrency
			// Total cost = amount * cost per unit
			lotTotalCost := lot.Amount.Mul(*lot.Spec.Cost)
			totalCost = totalCost.Add(lotTotalCost)
		}
	}

	// Check if there's enough to reduce
	if totalAmount.LessThan(amount) {
		return &insufficientLotError{msg: fmt.Sprintf("insufficient total amount for %s: have %s, need %s",
			commodity, totalAmount.String(), amount.String())}
	}

	// Calculate remaining amount after reduction
	remainingAmount := totalAmount.Sub(amount)

	// Remove all existing lots
	delete(inv.lots, commodity)

	// If nothing remains, we're done
	if remainingAmount.IsZero() {
		return nil
	}

	// Calculate average cost per unit if we have costed lots
	var avgSpec *lotSpec
	if hasCostedLots && !totalCost.IsZero() && !totalAmount.IsZero() {
		avgCost := totalCost.Div(totalAmount)
		avgSpec = &lotSpec{
			Cost:         &avgCost,
			CostCurrency: costCurrency,
		}
	}

	// Create single lot with remaining amount at average cost
	inv.AddLot(commodity, remainingAmount, avgSpec)

	return nil
}

// canReduceWithAverage is the read-only counterpart of reduceWithAverage.
func (inv *Inventory) canReduceWithAverage(commodity string, amount decimal.Decimal) error {
	totalAmount := decimal.Zero
	for _, lot := range inv.lots[commodity] {
		totalAmount = totalAmount.Add(lot.Amount)
	}

	if totalAmount.LessThan(amount) {
		return &insufficientLotError{msg: fmt.Sprintf("insufficient total amount for %s: have %s, need %s",
			commodity, totalAmount.String(), amount.String())}
	}

	return nil
}

// removeLot removes a lot from the inventory
func (inv *Inventory) removeLot(commodity string, lotToRemove *lot) {
	lots := inv.lots[commodity]
	newLots := make([]*lot, 0, len(lots)-1)
	for _, lot := range lots {
		if lot != lotToRemove {
			newLots = append(newLots, lot)
		}
	}
	if len(newLots) == 0 {
		delete(inv.lots, commodity)
	} else {
		inv.lots[commodity] = newLots
	}
}

// IsEmpty returns true if the inventory has no lots
func (inv *Inventory) IsEmpty() bool {
	return len(inv.lots) == 0
}

// Currencies returns all commodities in the inventory
func (inv *Inventory) Currencies() []string {
	currencies := make([]string, 0, len(inv.lots))
	for currency := range inv.lots {
		currencies = append(currencies, currency)
	}
	return currencies
}

// String returns a string representation of the inventory
func (inv *Inventory) String() string {
	if inv.IsEmpty() {
		return "{}"
	}

	var buf strings.Builder
	buf.WriteByte('{')

	first := true
	for commodity, lots := range inv.lots {
		for _, lot := range lots {
			if !first {
				buf.WriteString(", ")
			}
			if lot.Spec == nil || lot.Spec.IsEmpty() {
				buf.WriteString(lot.Amount.String())
				buf.WriteByte(' ')
				buf.WriteString(commodity)
			} else {
				buf.WriteString(lot.String())
			}
			first = false
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

// lotSpecsMatch checks if two lot specs match
func lotSpecsMatch(a, b *lotSpec) bool {
	// Both nil
	if a == nil && b == nil {
		return true
	}

	// One nil, one not
	if a == nil || b == nil {
		return false
	}

	return a.Equal(b)
}
