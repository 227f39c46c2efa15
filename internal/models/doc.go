// Package models defines the core domain records for the bill splitter.
//
// # Records
//
//   - User: registered account, carries its subscription tier
//   - Bill: owned by one user; owns participants, products and receipts
//   - Participant: a person on a bill, identified by ID (names may repeat)
//   - Product: a line item with unit price and quantity
//   - Allocation: a participant's share of one product
//   - Template: a reusable participant list
//   - Subscription: provider-side billing state for one user
//
// # Money
//
// All amounts are decimal.Decimal. Nothing in this package rounds; rounding
// to cents happens in the calculator and at presentation.
//
// # Validation
//
// Constructors (NewBill, NewParticipant, NewProduct, NewAllocation, NewTemplate)
// reject invalid values with an error wrapping ErrInvalidInput. Records loaded
// from storage were validated on the way in and are not re-checked.
package models
