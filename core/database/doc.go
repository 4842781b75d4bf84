// Package database handles database connections and schema inspection.
//
// It wraps GORM and selects a dialector from the configured driver:
//   - postgres (default): gorm's postgres dialector on top of lib/pq
//   - mysql: go-sql-driver through gorm's mysql dialector
//   - sqlite: mainly for local runs and tests
//
// The ingest job never creates or migrates tables. The inspector is used to
// verify the table contract (the natural-key column exists) before a pass
// mutates anything.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer database.Close(db)
//
//	ok, err := database.HasColumn(db, "listed_stock", "symbol")
package database
