package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"kanban-cli/internal/store"

	"github.com/spf13/cobra"
)

// configKeys are the settable keys of config.json in dotted form.
var configKeys = map[string]struct {
	get func(*store.GlobalConfig) any
	set func(*store.GlobalConfig, string) error
}{
	"apiUrl": {
		get: func(c *store.GlobalConfig) any { return c.EffectiveAPIURL() },
		set: func(c *store.GlobalConfig, v string) error { c.APIURL = strings.TrimSpace(v); return nil },
	},
	"timeoutSeconds": {
		get: func(c *store.GlobalConfig) any { return int(c.Timeout().Seconds()) },
		set: func(c *store.GlobalConfig, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return fmt.Errorf("timeoutSeconds must be a non-negative integer")
			}
			c.TimeoutSeconds = n
			return nil
		},
	},
	"requestsPerSecond": {
		get: func(c *store.GlobalConfig) any { return c.RateLimit() },
		set: func(c *store.GlobalConfig, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("requestsPerSecond must be a number")
			}
			c.RequestsPerSecond = f
			return nil
		},
	},
	"currentBoardId": {
		get: func(c *store.GlobalConfig) any { return c.CurrentBoardID },
		set: func(c *store.GlobalConfig, v string) error { c.CurrentBoardID = strings.TrimSpace(v); return nil },
	},
	"tui.profile": {
		get: func(c *store.GlobalConfig) any {
			if c.TUI == nil {
				return ""
			}
			return c.TUI.Profile
		},
		set: func(c *store.GlobalConfig, v string) error {
			if c.TUI == nil {
				c.TUI = &store.TUIConfig{}
			}
			c.TUI.Profile = strings.TrimSpace(v)
			return nil
		},
	},
	"tui.columnWidth": {
		get: func(c *store.GlobalConfig) any {
			if c.TUI == nil {
				return 0
			}
			return c.TUI.ColumnWidth
		},
		set: func(c *store.GlobalConfig, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return fmt.Errorf("tui.columnWidth must be a non-negative integer")
			}
			if c.TUI == nil {
				c.TUI = &store.TUIConfig{}
			}
			c.TUI.ColumnWidth = n
			return nil
		},
	},
}

func configKeyNames() []string {
	out := make([]string, 0, len(configKeys))
	for k := range configKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := store.ConfigPath()
			if len(args) == 0 {
				all := map[string]any{}
				for _, k := range configKeyNames() {
					all[k] = configKeys[k].get(app.cfg)
				}
				return writeData(cmd, app, all, map[string]any{"path": path})
			}
			k, ok := configKeys[args[0]]
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown config key %q (want one of %s)", args[0], strings.Join(configKeyNames(), ", ")))
			}
			return writeData(cmd, app, map[string]any{args[0]: k.get(app.cfg)}, map[string]any{"path": path})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := configKeys[args[0]]
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown config key %q (want one of %s)", args[0], strings.Join(configKeyNames(), ", ")))
			}
			if err := k.set(app.cfg, args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{args[0]: k.get(app.cfg)}, nil)
		},
	})
	return cmd
}
