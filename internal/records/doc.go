// Package records implements the user, attendance and leave history
// services the dashboard gateway aggregates.
//
// Records live in PostgreSQL. Writes and migrations go to the primary
// while reads rotate round-robin across the configured read replicas.
// Every failure is answered with HTTP 500 and {"error": "<message>"}.
package records
