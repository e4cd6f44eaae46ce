// Package models defines the persisted domain models for tripledger.
//
// # Ledger Models
//
//   - Group: a named set of members who share expenses in one currency
//   - Expense: one payment event, who paid and how much
//   - Split: the part of an Expense attributed to one member
//
// Members are identified by User IDs. Balances and settlement plans are not
// models: they are derived from Expenses on every read (see package ledger).
//
// # Relationships
//
// Relationships use ID strings instead of pointers. An Expense carries its
// Splits by value because the two are always created and deleted together.
package models
