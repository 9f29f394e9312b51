package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate/clientcli"
)

var password string

var signupCmd = &cobra.Command{
	Use:   "signup [email]",
	Short: "Register a new account",
	Long: `Register a new account on the server.

The password is prompted for (masked) unless --password is given.

Examples:
  itemgate-cli signup me@example.com
  itemgate-cli signup me@example.com --password "$PASSWORD"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Log in and save the token to the profile",
	Long: `Log in with email and password and store the returned token in the
selected profile (--profile, ITEMGATE_PROFILE, or the default profile).
The profile is created if it does not exist.

Examples:
  itemgate-cli login me@example.com
  itemgate-cli --profile prod --endpoint https://api.example.com login me@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	signupCmd.Flags().StringVarP(&password, "password", "P", "", "password (prompted when omitted)")
	loginCmd.Flags().StringVarP(&password, "password", "P", "", "password (prompted when omitted)")
}

func runSignup(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	email, pass, err := readCredentials(args, "")
	if err != nil {
		return err
	}

	identity, err := client.Signup(cmd.Context(), email, pass)
	if err != nil {
		return err
	}

	return getFormatter().FormatIdentity(os.Stdout, identity)
}

func runLogin(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()
	file, err := clientcli.LoadOrCreateConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	name := getProfileName()
	if name == "" {
		name = file.DefaultProfileName()
	}
	if name == "" {
		name = "default"
	}

	// The profile is created on success, so it may not exist yet.
	var profileCfg *clientcli.Config
	defaultEmail := ""
	if p, profileErr := file.GetProfile(name); profileErr == nil {
		profileCfg = clientcli.ConfigFromProfile(p)
		defaultEmail = p.Email
	}

	client, err := clientcli.New(clientcli.MergeConfig(
		profileCfg,
		clientcli.ConfigFromEnv(),
		&clientcli.Config{Endpoint: endpoint},
	))
	if err != nil {
		return err
	}

	email, pass, err := readCredentials(args, defaultEmail)
	if err != nil {
		return err
	}

	tok, err := client.Login(cmd.Context(), email, pass)
	if err != nil {
		return err
	}

	file.SaveLogin(name, client.Endpoint(), email, tok)
	if err := file.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	return getFormatter().FormatLogin(os.Stdout, clientcli.LoginResult{
		Profile:  name,
		Endpoint: client.Endpoint(),
		Email:    email,
		Token:    tok,
	})
}

// readCredentials takes the email from args and the password from the flag,
// prompting for whichever is missing.
func readCredentials(args []string, defaultEmail string) (string, string, error) {
	email := ""
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	}

	if email == "" {
		emailPrompt := promptui.Prompt{
			Label:   "Email",
			Default: defaultEmail,
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return errors.New("email is required")
				}
				return nil
			},
		}
		value, err := emailPrompt.Run()
		if err != nil {
			return "", "", promptAborted(err)
		}
		email = strings.TrimSpace(value)
	}

	pass := password
	if pass == "" {
		passwordPrompt := promptui.Prompt{
			Label: "Password",
			Mask:  '*',
			Validate: func(input string) error {
				if input == "" {
					return errors.New("password is required")
				}
				return nil
			},
		}
		value, err := passwordPrompt.Run()
		if err != nil {
			return "", "", promptAborted(err)
		}
		pass = value
	}

	return email, pass, nil
}

// promptAborted converts a prompt failure into an error that stops the
// command. A cancelled prompt exits quietly.
func promptAborted(err error) error {
	if herr := handlePromptError(err); herr != nil {
		return herr
	}
	return &exitError{code: 1}
}
