// Package listedstock implements the listed_stock dataset: every symbol listed
// on the Vietnamese exchanges with its company names and ICB industry
// classification.
//
// The table mirrors the provider listing. New symbols are inserted, delisted
// symbols are deleted and rows of symbols that stay listed are left untouched,
// even when the provider changes their names or industry codes.
//
// # Table contract
//
// The table must exist with at least a symbol column; the job does not create
// or migrate it. Expected columns:
//
//	symbol, organ_name, en_organ_name,
//	icb_name2, en_icb_name2, icb_name3, en_icb_name3, icb_name4, en_icb_name4,
//	com_type_code, icb_code1, icb_code2, icb_code3, icb_code4
package listedstock
