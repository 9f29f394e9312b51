package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate/clientcli"
)

var (
	version = "dev"

	cfgFile     string
	profileName string
	endpoint    string
	token       string
	jsonOutput  bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "itemgate-cli",
	Version: version,
	Short:   "Client for the itemgate API",
	Long: `itemgate-cli - Client for the itemgate HTTP gateway

Sign up and log in once; the token is saved to the selected profile
and used by the items and upload commands.

Settings are resolved in this order (later wins):
  1. profile in ~/.itemgate/config.yaml (--profile, env: ITEMGATE_PROFILE)
  2. environment: ITEMGATE_ENDPOINT, ITEMGATE_TOKEN
  3. flags: --endpoint, --token`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.itemgate/config.yaml, env: ITEMGATE_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: ITEMGATE_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:3000, env: ITEMGATE_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (env: ITEMGATE_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(1)
	}
}

// getConfigPath returns the config file path from flag, env, or default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envPath := clientcli.ConfigPathFromEnv(); envPath != "" {
		return envPath
	}
	return clientcli.DefaultConfigPath()
}

// getProfileName returns the requested profile from flag or env.
// Empty means the default profile.
func getProfileName() string {
	if profileName != "" {
		return profileName
	}
	return clientcli.ProfileFromEnv()
}

// resolveProfile loads the selected profile. A missing config file is only
// an error when a profile was requested by name.
func resolveProfile() (*clientcli.Profile, error) {
	name := getProfileName()

	cfg, err := clientcli.LoadConfigFile(getConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && name == "" {
			return nil, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", clientcli.ErrProfileNotFound, name)
		}
		return nil, err
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		if errors.Is(err, clientcli.ErrNoProfiles) && name == "" {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// buildConfig merges config from profile, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	profile, err := resolveProfile()
	if err != nil {
		return nil, err
	}

	return clientcli.MergeConfig(
		clientcli.ConfigFromProfile(profile),
		clientcli.ConfigFromEnv(),
		&clientcli.Config{Endpoint: endpoint, Token: token},
	), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return clientcli.New(cfg)
}

// exitError is returned when we want to exit with a specific code
// but don't want an error message printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
