// Package aggregates implements the scoring write side on GORM.
//
// Every mutation of a driver's score runs as one unit: lock the driver_scores row,
// append to scoring_events, move the aggregate with a version CAS, commit. Units that
// lose the CAS are retried whole by executeWrite. Reads that only project state live
// on the table repos in internal/data/repos.
package aggregates
