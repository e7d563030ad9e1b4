package cli

import (
	"fmt"
	"sort"

	"github.com/cantina-labs/possync/localstore"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pending outbox broken down by table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		deviceID, err := localstore.EnsureDeviceID(cmd.Context(), s)
		if err != nil {
			return err
		}

		oplog := localstore.NewOplog(s)
		ctx := cmd.Context()
		total, err := oplog.PendingCount(ctx)
		if err != nil {
			return err
		}
		byTable, err := oplog.PendingByTable(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("device:  %s\n", deviceID)
		fmt.Printf("pending: %d\n", total)
		tables := make([]string, 0, len(byTable))
		for t := range byTable {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			fmt.Printf("  %-24s %d\n", t, byTable[t])
		}
		return nil
	},
}
