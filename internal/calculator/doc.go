// Package calculator is the cost-allocation engine.
//
// The pipeline is NormalizeShares -> AllocateProduct -> SummarizeBill.
// Everything here is pure: no I/O, no shared state, safe to call from
// any number of goroutines.
//
// Amounts are fixed-point decimals. A product's line cost is split in
// cents; every participant but the last gets their weighted amount
// rounded to cents and the last participant absorbs the remainder, so
// the amounts of one product always add up to its line cost exactly.
package calculator
