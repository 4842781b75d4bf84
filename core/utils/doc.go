// Package utils holds small conversion helpers shared by the ingest core and
// dataset policies.
//
// Source providers hand over loosely typed values (strings from GraphQL,
// float64 from JSON decoding, []byte from some SQL drivers). ToString gives
// every one of them a single canonical string form so natural keys compare
// equal regardless of where they came from.
package utils
