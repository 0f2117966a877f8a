// Package store provides the SQLite-backed data set behind the data
// service: politicians, donors, donations, bills and recorded votes.
//
// A Store implements gateway.Gateway in-process, so the client core can run
// against a local database without an HTTP hop, and the dataserver package
// serves the same queries over HTTP.
//
// # Query Semantics
//
//   - Name searches are case-insensitive substring matches; politicians
//     need two code points, donors three, shorter queries return no rows
//   - Politicians are ordered active first, then by last and first name
//   - Donations are ordered newest first, then by amount
//   - Votes are paged ten at a time, ordered by the bill's introduction date
//   - Summaries total donations per donor industry, largest first
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
