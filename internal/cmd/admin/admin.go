// Package admin implements the Mathly operator CLI: player accounts, wallet
// adjustments, player tokens and server health.
package admin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	entrypoint "github.com/SingularTensor/Mathly/internal/platform/cmd"
	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	platformgrpc "github.com/SingularTensor/Mathly/internal/platform/grpc"
	"github.com/SingularTensor/Mathly/internal/platform/timeouts"
	"github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/auth"
	practiceservice "github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/practice"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	practicesqlite "github.com/SingularTensor/Mathly/internal/services/practice/storage/sqlite"
)

// Config holds admin command configuration.
type Config struct {
	DBPath       string        `env:"PRACTICE_DB_PATH"    envDefault:"data/practice.db"`
	PracticeAddr string        `env:"PRACTICE_ADDR"       envDefault:"localhost:8095"`
	TokenSecret  string        `env:"PLAYER_TOKEN_SECRET"`
	TokenIssuer  string        `env:"PLAYER_TOKEN_ISSUER" envDefault:"mathly"`
	TokenTTL     time.Duration `env:"PLAYER_TOKEN_TTL"    envDefault:"720h"`
	// Locale selects the language of reported domain errors.
	Locale string `env:"LOCALE"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Execute runs the admin CLI with args.
func Execute(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	root := NewRootCommand(&cfg)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the admin command tree. Persistent flags write into cfg.
func NewRootCommand(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           entrypoint.ServiceAdmin,
		Short:         "Mathly operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path of the practice SQLite database")

	root.AddCommand(newUserCommand(cfg), newWalletCommand(cfg), newRunCommand(cfg), newTokenCommand(cfg), newHealthCommand(cfg))
	return root
}

// withEngine opens the practice store for the duration of fn.
func withEngine(ctx context.Context, cfg *Config, fn func(*play.Service) error) error {
	openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	store, err := practicesqlite.Open(openCtx, cfg.DBPath)
	cancel()
	if err != nil {
		return fmt.Errorf("open practice store: %w", err)
	}
	defer store.Close()

	engine, err := play.NewService(play.Config{Store: store})
	if err != nil {
		return err
	}
	if err := fn(engine); err != nil {
		return localized(err, cfg.Locale)
	}
	return nil
}

// localized replaces domain errors with their user-facing message.
func localized(err error, locale string) error {
	if apperrors.GetCode(err) == apperrors.CodeUnknown {
		return err
	}
	return fmt.Errorf("%s (%s)", apperrors.Localize(err, locale), apperrors.GetCode(err))
}

func printUser(out io.Writer, user storage.User) {
	fmt.Fprintf(out, "user %s name=%q wallet=%d\n", user.ID, user.DisplayName, user.Wallet)
}

func newUserCommand(cfg *Config) *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage player accounts"}

	var name string
	create := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Create a player account, or show it when it already exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), cfg, func(engine *play.Service) error {
				created, err := engine.EnsureUser(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				printUser(cmd.OutOrStdout(), created)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Display name")
	user.AddCommand(create)
	return user
}

func newWalletCommand(cfg *Config) *cobra.Command {
	wallet := &cobra.Command{Use: "wallet", Short: "Inspect and adjust player wallets"}

	show := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a player's wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), cfg, func(engine *play.Service) error {
				user, err := engine.GetUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printUser(cmd.OutOrStdout(), user)
				return nil
			})
		},
	}

	adjust := func(use, short string, apply func(*play.Service, context.Context, string, int) (storage.User, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := play.ParseAmount(args[1])
				if err != nil {
					return localized(err, cfg.Locale)
				}
				return withEngine(cmd.Context(), cfg, func(engine *play.Service) error {
					user, err := apply(engine, cmd.Context(), args[0], amount)
					if err != nil {
						return err
					}
					printUser(cmd.OutOrStdout(), user)
					return nil
				})
			},
		}
	}

	wallet.AddCommand(
		show,
		adjust("grant <user-id> <amount>", "Credit experience to a wallet", (*play.Service).GrantWallet),
		adjust("set <user-id> <amount>", "Overwrite a wallet balance", (*play.Service).SetWallet),
	)
	return wallet
}

func newRunCommand(cfg *Config) *cobra.Command {
	runCmd := &cobra.Command{Use: "run", Short: "Manage practice runs"}
	abandon := &cobra.Command{
		Use:   "abandon <user-id>",
		Short: "Discard a player's current run and pending problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), cfg, func(engine *play.Service) error {
				user, err := engine.GetUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := engine.AbandonRun(cmd.Context(), user.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run abandoned for %s\n", user.ID)
				return nil
			})
		},
	}
	runCmd.AddCommand(abandon)
	return runCmd
}

func newTokenCommand(cfg *Config) *cobra.Command {
	token := &cobra.Command{Use: "token", Short: "Manage player tokens"}
	issue := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a signed player token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, claims, err := auth.IssueToken(auth.TokenConfig{
				Issuer: cfg.TokenIssuer,
				Secret: []byte(cfg.TokenSecret),
				TTL:    cfg.TokenTTL,
			}, args[0])
			if err != nil {
				return localized(err, cfg.Locale)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", claims.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	token.AddCommand(issue)
	return token
}

func newHealthCommand(cfg *Config) *cobra.Command {
	var timeout time.Duration
	health := &cobra.Command{
		Use:   "health",
		Short: "Wait until the practice server reports SERVING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := platformgrpc.DialWithHealth(cmd.Context(), cfg.PracticeAddr, practiceservice.ServiceName, timeout, nil)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s is serving %s\n", cfg.PracticeAddr, practiceservice.ServiceName)
			return nil
		},
	}
	health.Flags().StringVar(&cfg.PracticeAddr, "addr", cfg.PracticeAddr, "Practice server address")
	health.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait")
	return health
}
