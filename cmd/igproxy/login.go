package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igproxy/pkg/auth"
	"igproxy/pkg/config"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and store a session for later server use",
	Long: `Log in to the platform interactively and store the resulting session.

The server reuses stored sessions, so priming one here means HTTP requests for
this account never need a two-factor prompt. You will be asked for the
password and, when the account requires it, a two-factor code.`,
	Example: `  # Prime a session for myaccount
  igproxy login myaccount`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(logger.Options{Level: "warn"}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	username := strings.TrimSpace(args[0])

	sessions, err := buildSessionManager(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build session storage: %w", err)
	}

	factory := func() instagram.API {
		client := instagram.NewClient(cfg.Instagram.RequestTimeout, log)
		client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
		return client
	}
	authenticator := auth.New(sessions, auth.NewMemoryChallengeStore(), factory, log, auth.Options{})

	fmt.Printf("Password for %s: ", username)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	login, err := authenticator.Authenticate(cmd.Context(), auth.Credential{
		Username:         username,
		Password:         string(passwordBytes),
		TwoFactorEnabled: true,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if login.ChallengeToken != "" {
		reader := bufio.NewReader(os.Stdin)
		for attempt := 1; ; attempt++ {
			fmt.Print("Two-factor code: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read code: %w", err)
			}
			login, err = authenticator.SubmitChallenge(cmd.Context(), login.ChallengeToken, strings.TrimSpace(line))
			if err == nil {
				break
			}
			if attempt >= auth.DefaultMaxAttempts {
				return fmt.Errorf("two-factor login failed: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Code rejected: %v\n", err)
		}
	}

	fmt.Printf("Session stored for %s\n", username)
	return nil
}
