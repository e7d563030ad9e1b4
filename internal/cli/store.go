package cli

import (
	"log/slog"

	"github.com/cantina-labs/possync/localstore"
	"github.com/cantina-labs/possync/model"
)

// openStore opens the catalogue store with the configured retry tuning.
func openStore() (*localstore.Store, error) {
	return localstore.Open(dbPath(), model.Registry(), localstore.Options{
		Logger: slog.Default(),
		Tx: localstore.TxOptions{
			Attempts: cfg.GetInt(cfgKeyTxAttempts),
			Backoff:  txBackoff(),
		},
	})
}
