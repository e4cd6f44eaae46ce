// Package ledger implements the group expense engine: validating expense
// splits before they are stored, aggregating member balances and planning
// the payments that settle a group.
//
// Everything here is pure. Callers load data from storage and pass it in;
// nothing is cached, so results always reflect the latest committed expenses.
package ledger
