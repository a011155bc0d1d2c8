// Package main provides the entry point for fintrack-cli.
//
// fintrack-cli is a command-line client for the personal-finance API:
//
//   - Sign in, register and sign out; the session token is kept in a
//     local credential store
//   - Dashboard totals, recent transactions and analytics
//   - Add, edit, delete and bulk-import transactions
//   - Local SQLite snapshots of the dashboard
//
// Usage:
//
//	fintrack-cli login --email ann@example.com
//	fintrack-cli dashboard -o json
//	fintrack-cli tx add --type expense --amount 12.50 --category Food
//	fintrack-cli shell
package main
