// Package source implements the snapshot providers consumed by dataset policies.
//
//   - VCI: POSTs the CompaniesListingInfo GraphQL query to the VCI market-data
//     API through the fiber HTTP client and maps camelCase fields to listing
//     columns (ticker -> symbol, organName -> organ_name, ...).
//   - Object: reads a JSON array of records from an object-storage bucket,
//     for feeds exported by another system.
//
// Both return raw records; validation is left to the dataset policy.
// No source retries: a failed fetch fails the pass and the scheduler's next
// trigger is the retry.
package source
