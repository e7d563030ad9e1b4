package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/cantina-labs/possync/localstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// mintDeviceToken signs a short-lived JWT identifying this device to the
// sync API.
func mintDeviceToken(deviceID string, ttl time.Duration) (string, error) {
	secret := cfg.GetString(cfgKeyTokenSecret)
	if secret == "" {
		return "", errors.New("token_secret is not configured; run possync init and edit config.yaml")
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": deviceID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return signed, nil
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint and print a device token for the sync API",
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
		signed, err := mintDeviceToken(deviceID, tokenTTL())
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}
