package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"callsight/config"
	"callsight/internal/auth"
	"callsight/internal/backend"
	"callsight/internal/logging"
	"callsight/internal/tokenstore"
)

const usage = `Usage: callsight-ctl [-config path] <command>

Commands:
  login -email <email> -password <password> [-remember]
  logout
  status
  whoami
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New("error", "text")

	persistent, err := tokenstore.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	store := tokenstore.NewTiered(persistent, tokenstore.NewMemoryStore())
	defer store.Close()

	client := backend.New(cfg.Backend.BaseURL, nil, logger)
	manager := auth.NewManager(store, client, logger)
	client.SetAuthedClient(&http.Client{
		Transport: auth.NewTransport(nil, manager, nil, logger),
		Timeout:   30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch args[0] {
	case "login":
		return login(ctx, args[1:], client, manager)
	case "logout":
		if err := manager.ClearTokens(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	case "status":
		return status(manager)
	case "whoami":
		return whoami(ctx, client, manager)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func login(ctx context.Context, args []string, client *backend.Client, manager *auth.Manager) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "Account email")
	password := flags.String("password", "", "Account password")
	remember := flags.Bool("remember", false, "Keep the session across restarts")
	flags.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("login requires -email and -password")
	}

	result, err := client.Login(ctx, *email, *password)
	if err != nil {
		return describeAuthError(err)
	}

	if err := manager.StoreTokens(result.Record, *remember); err != nil {
		return err
	}
	if err := manager.StoreProfile(result.Profile, *remember); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s (%s), token valid until %s\n",
		result.Profile.Username,
		result.Profile.Email,
		time.UnixMilli(result.Record.ExpiresAt).Format(time.RFC3339),
	)
	return nil
}

func status(manager *auth.Manager) error {
	if manager.AccessToken() == "" {
		fmt.Println("Not signed in.")
		return nil
	}
	if manager.IsTokenExpired() {
		fmt.Println("Signed in, but the access token has expired; it will refresh on next use.")
		return nil
	}
	fmt.Println("Signed in with a valid access token.")
	return nil
}

func whoami(ctx context.Context, client *backend.Client, manager *auth.Manager) error {
	if manager.AccessToken() == "" {
		fmt.Println("Not signed in.")
		return nil
	}

	profile, err := client.Me(ctx)
	if err != nil {
		return describeAuthError(err)
	}

	fmt.Printf("%s <%s>\n", profile.Username, profile.Email)
	fmt.Printf("Company: %s (%s)\n", profile.CompanyCode, profile.CompanyID)
	return nil
}

// describeAuthError turns taxonomy errors into messages fit for a terminal
func describeAuthError(err error) error {
	switch auth.KindOf(err) {
	case auth.KindVerificationRequired:
		return fmt.Errorf("account is pending verification by an administrator")
	case auth.KindAccountInactive:
		return fmt.Errorf("account has been deactivated")
	case auth.KindDelay:
		return fmt.Errorf("too many attempts, wait before trying again: %w", err)
	case auth.KindLockout:
		return fmt.Errorf("account temporarily locked: %w", err)
	case auth.KindRefreshFailure:
		return fmt.Errorf("session expired, sign in again")
	default:
		return err
	}
}
