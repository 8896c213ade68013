package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polymarket-trader/internal/config"
	"polymarket-trader/internal/security"
)

// passphraseEnv lets the run command unlock the keyring non-interactively.
const passphraseEnv = "TRADER_KEYRING_PASSPHRASE"

func newKeysCmd(app *App, configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the encrypted wallet keyring",
	}
	cmd.AddCommand(newKeysSetCmd(configDir))
	cmd.AddCommand(newKeysStatusCmd(configDir))
	return cmd
}

func newKeysSetCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Encrypt and store the Polygon private key",
		Long: `Reads the private key and a passphrase from stdin and stores the key
encrypted at rest in the config directory. Live trading loads it with the
passphrase from ` + passphraseEnv + ` when POLYGON_PRIVATE_KEY is not set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())

			fmt.Print("Private key: ")
			key, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading private key: %w", err)
			}
			fmt.Print("Passphrase: ")
			passphrase, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading passphrase: %w", err)
			}

			key = strings.TrimSpace(key)
			passphrase = strings.TrimSpace(passphrase)
			if key == "" || passphrase == "" {
				return fmt.Errorf("private key and passphrase must not be empty")
			}

			dir := keyringDir(*configDir)
			if err := security.NewKeyring(dir).Store(key, passphrase); err != nil {
				return err
			}
			color.Green("Key stored encrypted in %s", dir)
			return nil
		},
	}
}

func newKeysStatusCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a wallet key is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := keyringDir(*configDir)
			if security.NewKeyring(dir).Exists() {
				color.Green("Encrypted wallet key present in %s", dir)
			} else {
				color.Yellow("No wallet key stored. Run 'trader keys set'.")
			}
			return nil
		},
	}
}

func keyringDir(configDir string) string {
	if configDir == "" {
		return config.DefaultConfigDir()
	}
	return configDir
}

// loadKeyFromKeyring fills the config's private key from the keyring when the
// environment did not provide one. Failing to unlock is not fatal here; the
// config validation rejects live mode without a key.
func loadKeyFromKeyring(app *App, configDir string) {
	if app.Config.PrivateKey != "" {
		return
	}
	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		return
	}
	keyring := security.NewKeyring(keyringDir(configDir))
	if !keyring.Exists() {
		return
	}
	key, err := keyring.Load(passphrase)
	if err != nil {
		app.Logger.Warn().Err(err).Msg("could not unlock keyring")
		return
	}
	app.Config.PrivateKey = key
}
