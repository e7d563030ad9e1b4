package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cantina-labs/possync/localstore"
	"github.com/cantina-labs/possync/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <entity>",
	Short: "Push the pending outbox for one entity (e.g. product, order)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := args[0]

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
		coord := localstore.NewPushCoordinator(model.Registry(), oplog, localstore.PushConfig{
			BaseURL: cfg.GetString(cfgKeyBaseURL),
			Token: func(ctx context.Context) (string, error) {
				return mintDeviceToken(deviceID, tokenTTL())
			},
			BatchLimit: cfg.GetInt(cfgKeyBatchLimit),
		}, slog.Default())

		requestID := uuid.NewString()
		if err := coord.Push(cmd.Context(), entity, requestID); err != nil {
			return err
		}

		remaining, err := oplog.PendingCount(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("request:  %s\n", requestID)
		fmt.Printf("pending:  %d\n", remaining)
		return nil
	},
}
