package cli

import (
	"fmt"

	"github.com/cantina-labs/possync/localstore"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file, bootstrap the database and assign a device id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := ensureDefaultConfig()
		if err != nil {
			return err
		}
		// Re-read so a freshly written config takes effect.
		if err := loadConfig(); err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		deviceID, err := localstore.EnsureDeviceID(cmd.Context(), s)
		if err != nil {
			return err
		}

		fmt.Printf("config:   %s\n", path)
		fmt.Printf("database: %s\n", dbPath())
		fmt.Printf("device:   %s\n", deviceID)
		return nil
	},
}
