package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"kanban-cli/internal/api"
	"kanban-cli/internal/format"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/session"
	"kanban-cli/internal/store"
	"kanban-cli/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	APIURL     string
	Board      string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg     *store.GlobalConfig
	log     *zap.Logger
	session *session.Context
	client  *api.Client
	co      *mutate.Coordinator
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "kanban",
		Short:        "Kanban board client (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the current board in the interactive TUI
  kanban

  # Sign in and pick a board
  kanban login --email me@example.com
  kanban boards list
  kanban boards use <board-id>

  # Scriptable commands
  kanban cards create --list <list-id> --title "Write release notes"
  kanban cards move <card-id> --to <list-id>

  # Direct board lookup (shortcut for: kanban boards show <board-id>)
  kanban 64b7f0c2e4b0a1d2c3e4f5a6
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !format.Valid(app.Format) {
			return writeErr(cmd, fmt.Errorf("unknown format: %s (want one of %s)", app.Format, strings.Join(format.Formats, ", ")))
		}
		return app.init(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.log != nil {
			_ = app.log.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("KANBAN_API_URL", ""), "Backend base URL (overrides apiUrl in config.json)")
	cmd.PersistentFlags().StringVar(&app.Board, "board", envOr("KANBAN_BOARD", ""), "Board id (overrides currentBoardId in config.json)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("KANBAN_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", envOr("KANBAN_VERBOSE", "") == "1", "Log requests and mutations to stderr")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newBoardsCmd(app))
	cmd.AddCommand(newListsCmd(app))
	cmd.AddCommand(newCardsCmd(app))
	cmd.AddCommand(newMembersCmd(app))
	cmd.AddCommand(newInvitationsCmd(app))
	cmd.AddCommand(newLabelsCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newCalendarCmd(app))
	cmd.AddCommand(newTableCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// init wires config, logger, session, client and coordinator for one invocation.
func (app *App) init(cmd *cobra.Command) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, fmt.Errorf("load config: %w", err))
	}
	app.cfg = cfg

	app.log = zap.NewNop()
	if app.Verbose {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{"stderr"}
		if l, err := zc.Build(); err == nil {
			app.log = l
		}
	}

	dir, err := store.ConfigDir()
	if err != nil {
		return writeErr(cmd, err)
	}
	app.session = session.New(dir, session.WithLogger(app.log.Named("session")))
	if err := app.session.Init(); err != nil {
		return writeErr(cmd, fmt.Errorf("load session: %w", err))
	}

	apiURL := strings.TrimSpace(app.APIURL)
	if apiURL == "" {
		apiURL = cfg.EffectiveAPIURL()
	}
	app.client = api.NewClient(apiURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.RateLimit()),
		api.WithTokenSource(app.session),
		api.WithLogger(app.log.Named("api")),
	)

	opts := []mutate.Option{
		mutate.WithLogger(app.log.Named("mutate")),
		mutate.WithActor(func() string {
			u, _ := app.session.User()
			return u.ID
		}),
	}
	if cache, err := store.DefaultCache(); err == nil {
		opts = append(opts, mutate.WithCache(cache))
	}
	app.co = mutate.New(app.client, opts...)
	return nil
}

// boardID picks the board for a command: explicit argument, --board, then config.
func (app *App) boardID(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if strings.TrimSpace(app.Board) != "" {
		return strings.TrimSpace(app.Board), nil
	}
	if app.cfg != nil && app.cfg.CurrentBoardID != "" {
		return app.cfg.CurrentBoardID, nil
	}
	return "", errors.New("no board selected; pass a board id or run `kanban boards use <board-id>`")
}

// requireLogin fails fast instead of sending a request the backend will reject.
func (app *App) requireLogin() error {
	if !app.session.Authenticated() {
		return session.ErrNotLoggedIn
	}
	return nil
}

// loadBoardOf hydrates the board that holds the given list or card so the coordinator can
// resolve parents. Exactly one of listID and cardID is set.
func (app *App) loadBoardOf(ctx context.Context, listID, cardID string) error {
	boardID, err := app.boardID(nil)
	if err != nil {
		return err
	}
	if _, err := app.co.LoadBoard(ctx, boardID); err != nil {
		return err
	}
	if listID != "" {
		if _, ok := app.co.Store.List(listID); !ok {
			return mutate.NotFoundError{Kind: "list", ID: listID}
		}
	}
	if cardID != "" {
		if _, ok := app.co.Store.Card(cardID); !ok {
			return mutate.NotFoundError{Kind: "card", ID: cardID}
		}
	}
	return nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	if err := app.requireLogin(); err != nil {
		return writeErr(cmd, err)
	}
	boardID, _ := app.boardID(nil)
	dir, err := store.ConfigDir()
	if err != nil {
		return writeErr(cmd, err)
	}
	opts := tui.Options{
		Coordinator: app.co,
		Client:      app.client,
		BoardID:     boardID,
		StateDir:    dir,
		Log:         app.log.Named("tui"),
	}
	if app.cfg.TUI != nil {
		opts.Profile = app.cfg.TUI.Profile
		opts.ColumnWidth = app.cfg.TUI.ColumnWidth
	}
	return tui.Run(cmd.Context(), opts)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeData(cmd *cobra.Command, app *App, data any, meta map[string]any) error {
	return format.WriteData(cmd.OutOrStdout(), data, meta, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
