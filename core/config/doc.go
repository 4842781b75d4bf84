// Package config provides configuration management for the ingest job.
//
// Values come from struct tag defaults, then a .env file, then the process
// environment. Keys are nested with "_" in the environment: DATABASE_HOST
// sets database.host and LOG_DIR sets log.dir.
//
// # Configuration Structure
//
//   - Log: level, format and log directory
//   - Database: driver (postgres, mysql, sqlite) and connection details
//   - Storage: S3/MinIO credentials and bucket, used by the object source
//   - Source: provider kind, endpoint and timeout
//   - Ingest: target table override, dry run, minimum snapshot size, batch sizes
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	db, err := database.Connect(cfg.Database)
package config
