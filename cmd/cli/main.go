package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys. Each can come from a flag, LEDGERCTL_<KEY> or the config file.
const (
	keyURL         = "url"
	keyToken       = "token"
	keyTimeout     = "timeout"
	keyOutput      = "output"
	keySecret      = "jwt_secret"
	keyDatabaseURL = "database_url"
)

func main() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	if err := newRootCmd(viper.New()).Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerbook CLI tool",
		Long:          `A command line interface for the ledgerbook API and its database schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String(keyURL, "http://localhost:8080", "Base URL of the ledgerbook API")
	flags.String(keyToken, "", "Access token sent as the auth cookie")
	flags.Duration(keyTimeout, 10*time.Second, "Request timeout")
	flags.StringP(keyOutput, "o", "table", "Output format: table or json")
	for _, key := range []string{keyURL, keyToken, keyTimeout, keyOutput} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(
		tokenCmd(v),
		txCmd(v),
		auditCmd(v),
		summaryCmd(v),
		migrateCmd(v),
	)

	return rootCmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("LEDGERCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func newClient(v *viper.Viper) *apiClient {
	return newAPIClient(v.GetString(keyURL), v.GetString(keyToken), v.GetDuration(keyTimeout))
}
