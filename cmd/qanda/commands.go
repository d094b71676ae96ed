package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/qanda/internal/auth"
	"github.com/sakif/qanda/internal/config"
	sqliteRepo "github.com/sakif/qanda/internal/repository/sqlite"
	"github.com/sakif/qanda/internal/server"
	"github.com/sakif/qanda/internal/service"
)

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

// services is the slice of the application the operator commands need.
type services struct {
	db        *sqliteRepo.DB
	auth      *service.AuthService
	questions *service.QuestionService
	answers   *service.AnswerService
}

func (a *app) openServices() (*services, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(a.cfg.JWTSecret, a.cfg.SessionLifetime)
	if err != nil {
		db.Close()
		return nil, err
	}

	users, questions, answers := db.Users(), db.Questions(), db.Answers()
	return &services{
		db:        db,
		auth:      service.NewAuthService(users, tokens, auth.NewPasswordService(a.cfg.BcryptCost), a.logger),
		questions: service.NewQuestionService(questions, answers, a.logger),
		answers:   service.NewAnswerService(answers, questions, a.logger),
	}, nil
}

// withServices opens the database for one command and closes it afterwards.
func (a *app) withServices(fn func(*services) error) error {
	svc, err := a.openServices()
	if err != nil {
		return err
	}
	defer svc.db.Close()
	return fn(svc)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "qanda",
		Short:        "A server-rendered question and answer board",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			level, _ := config.ParseLevel(cfg.LogLevel) // validated by Load
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "qanda.yaml",
		"path to the YAML config file (missing file = defaults)")

	root.AddCommand(
		newServeCmd(a),
		newCreateUserCmd(a),
		newUserCmd(a),
		newRestoreCmd(a),
	)
	return root
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.EphemeralSecret {
				a.logger.Warn("JWT_SECRET not set: using a random secret, logins will not survive a restart")
			}

			srv, err := server.New(a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
			return srv.Start()
		},
	}
}

func newCreateUserCmd(a *app) *cobra.Command {
	var in service.RegisterInput

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create an account (same rules as the registration form)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password1 == "" {
				in.Password1 = os.Getenv("QANDA_PASSWORD")
			}
			in.Password2 = in.Password1

			return a.withServices(func(svc *services) error {
				user, err := svc.auth.CreateUser(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address, used to log in (required)")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Password1, "password", "", "password (default $QANDA_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " EMAIL",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(func(svc *services) error {
					if err := svc.auth.SetActive(cmd.Context(), args[0], active); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: active=%t\n", args[0], active)
					return nil
				})
			},
		}
	}

	cmd.AddCommand(
		setActive("activate", "Allow the account to log in again", true),
		setActive("deactivate", "Block the account; existing logins stop working", false),
	)
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Undo a soft delete",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "question ID",
			Short: "Restore a deleted question",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(func(svc *services) error {
					if err := svc.questions.Restore(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "restored question %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "answer ID",
			Short: "Restore a deleted answer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(func(svc *services) error {
					if err := svc.answers.Restore(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "restored answer %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}
