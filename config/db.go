package config

import (
	dbm "github.com/tendermint/tm-db"
)

// DBName is the name of the client database in DBDir.
const DBName = "lightclients"

// DefaultDBProvider opens DBName with the configured backend in DBDir.
func DefaultDBProvider(cfg *Config) (dbm.DB, error) {
	return dbm.NewDB(DBName, dbm.BackendType(cfg.DBBackend), cfg.DBDir())
}
