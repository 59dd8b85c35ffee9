package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/poi/internal"
	"github.com/starford/poi/internal/apperr"
	"github.com/starford/poi/internal/editor"
	"github.com/starford/poi/internal/models"
	"github.com/starford/poi/internal/noteservice"
	pkgconfig "github.com/starford/poi/pkg/config"
)

const stampFormat = "2006-01-02 Mon 15:04"

func main() {
	cmd := &cli.Command{
		Name:  "poi",
		Usage: "Points of interest: plain-text notes named by their own history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("POI_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			initCmd(),
			addCmd(),
			listCmd(),
			searchCmd(),
			viewCmd(),
			editCmd(),
			deleteCmd(),
			randomCmd(),
			sweepCmd(),
			watchCmd(),
			configCmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "poi: %s\n", userMessage(err))
		os.Exit(1)
	}
}

// userMessage maps typed errors onto the messages shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNoLastNote):
		return "last note is not available"
	case errors.Is(err, apperr.ErrIndexNotFound):
		return "note not available in last listing (run 'poi list')"
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return "store is not available (run 'poi init' or check store.path)"
	case errors.Is(err, apperr.ErrRenameConflict):
		return "rename destination already exists; check the system clock"
	case errors.Is(err, apperr.ErrInvalidIdentity):
		return "note filename cannot be decoded (renamed outside poi?)"
	default:
		return err.Error()
	}
}

// loadConfig layers the config file (when present) and the POI_HOME
// environment variable over the defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if home := os.Getenv("POI_HOME"); home != "" {
		cfg.Store.Path = home
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// withApp loads the config, wires the application, and tears it down after
// the action.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := internal.New(internal.WithConfig(cfg))
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func indexArg(cmd *cli.Command) (string, error) {
	token := cmd.Args().First()
	if token == "" {
		return "", fmt.Errorf("missing INDEX argument (an integer from the last listing, or '_')")
	}
	return token, nil
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a note store",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			created, err := internal.Init(cfg)
			if err != nil {
				return err
			}
			if !created {
				fmt.Printf("poi has already been initialized at %s\n", cfg.Store.Path)
				return nil
			}
			if err := writeStarterConfig(cmd.String("config"), cfg); err != nil {
				return err
			}
			fmt.Printf("poi initialized at %s\n", cfg.Store.Path)
			return nil
		},
	}
}

// writeStarterConfig records the effective configuration next to the store
// on first init, unless a config file already exists.
func writeStarterConfig(path string, cfg *internal.Config) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode starter config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write starter config: %w", err)
	}
	return nil
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a note and open it in the editor",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Seed a tag line"},
		},
		Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
			var tags []string
			for _, t := range cmd.StringSlice("tag") {
				tags = append(tags, app.Config().Store.ExpandTag(t))
			}
			n, err := app.Service().Add(tags)
			if err != nil {
				return err
			}
			abs, err := app.AbsPath(n)
			if err != nil {
				return err
			}
			if err := editor.Open(app.Config().Editor.Command, abs); err != nil {
				return err
			}
			return app.Service().Reindex(n)
		}),
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List notes, rebuilding the listing index",
		ArgsUsage: "[TERMS...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "case-sensitive", Aliases: []string{"C"}, Usage: "Don't ignore case when matching terms"},
			&cli.BoolFlag{Name: "filepath", Aliases: []string{"f"}, Usage: "Only list filepaths"},
			&cli.BoolFlag{Name: "edited", Aliases: []string{"e"}, Usage: "Sort by time edited"},
			&cli.BoolFlag{Name: "viewed", Aliases: []string{"v"}, Usage: "Sort by time viewed"},
			&cli.StringFlag{Name: "since", Aliases: []string{"s"}, Usage: "Only notes created since DATE (inclusive)"},
			&cli.StringFlag{Name: "before", Aliases: []string{"b"}, Usage: "Only notes created before DATE (exclusive)"},
			&cli.IntFlag{Name: "num-days-ago", Aliases: []string{"n"}, Value: -1, Usage: "Only notes created N days ago"},
		},
		Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
			opts, err := listOptions(cmd)
			if err != nil {
				return err
			}
			entries, err := app.Service().List(opts)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return nil
			}
			if cmd.Bool("filepath") {
				for _, e := range entries {
					abs, err := app.AbsPath(e.Note)
					if err != nil {
						return err
					}
					fmt.Println(abs)
				}
				return nil
			}
			width := len(strconv.Itoa(len(entries) - 1))
			fmt.Println()
			for _, e := range entries {
				fmt.Printf("%-*d %s   %s\n", width, e.Index, e.Stamp.Format(stampFormat), e.Title)
			}
			fmt.Printf("\ntotal: %d\n\n", len(entries))
			return nil
		}),
	}
}

func listOptions(cmd *cli.Command) (noteservice.ListOptions, error) {
	opts := noteservice.ListOptions{
		Terms:         cmd.Args().Slice(),
		CaseSensitive: cmd.Bool("case-sensitive"),
		Sort:          models.SortCreated,
	}
	if cmd.Bool("edited") {
		opts.Sort = models.SortEdited
	} else if cmd.Bool("viewed") {
		opts.Sort = models.SortViewed
	}
	if s := cmd.String("since"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return opts, err
		}
		opts.Since = t
	}
	if b := cmd.String("before"); b != "" {
		t, err := parseDate(b)
		if err != nil {
			return opts, err
		}
		opts.Before = t
	}
	if n := int(cmd.Int("num-days-ago")); n >= 0 {
		day := time.Now().AddDate(0, 0, -n)
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
		opts.Since = midnight
		opts.Before = midnight.AddDate(0, 0, 1)
	}
	return opts, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over the note index",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum number of hits"},
		},
		Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if query == "" {
				return fmt.Errorf("missing search query")
			}
			if err := app.SyncIndex(); err != nil {
				return err
			}
			hits, err := app.Service().Search(query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, h := range hits {
				title := h.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%s  %s\n", h.Path, title)
				if h.Snippet != "" {
					fmt.Printf("    %s\n", strings.ReplaceAll(h.Snippet, "\n", " "))
				}
			}
			if len(hits) == 0 {
				fmt.Println("no matches")
			}
			return nil
		}),
	}
}

func viewCmd() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "View a note (advances its viewed time)",
		ArgsUsage: "INDEX",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "print", Aliases: []string{"p"}, Usage: "Print the note instead of paging"},
			&cli.BoolFlag{Name: "filepath", Aliases: []string{"f"}, Usage: "Only show the filepath"},
			&cli.BoolFlag{Name: "info", Aliases: []string{"i"}, Usage: "Show the note's timestamps"},
		},
		Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
			token, err := indexArg(cmd)
			if err != nil {
				return err
			}
			n, data, err := app.Service().View(token)
			if err != nil {
				return err
			}
			switch {
			case cmd.Bool("info"):
				abs, err := app.AbsPath(n)
				if err != nil {
					return err
				}
				fmt.Printf("%10s: %s\n", "filepath", abs)
				fmt.Printf("%10s: %s\n", "created", n.Created.Format(stampFormat))
				fmt.Printf("%10s: %s\n", "edited", n.Edited.Format(stampFormat))
				fmt.Printf("%10s: %s\n", "viewed", n.Viewed.Format(stampFormat))
				return nil
			case cmd.Bool("filepath"):
				abs, err := app.AbsPath(n)
				if err != nil {
					return err
				}
				fmt.Println(abs)
				return nil
			case cmd.Bool("print"):
				fmt.Println(strings.TrimSpace(string(data)))
				return nil
			default:
				return editor.Page(data)
			}
		}),
	}
}

func editCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a note (advances its edited and viewed times)",
		ArgsUsage: "INDEX",
		Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
			token, err := indexArg(cmd)
			if err != nil {
				return err
			}
			n, err := app.Service().Edit(token, app.Backup)
			if err != nil {
				return err
			}
			abs, err := app.AbsPath(n)
			if err != nil {
				return err
			}
			if err := editor.Open(app.Config().Editor.Command, abs); err != nil {
				return err
			}
			return app.Service().Reindex(n)
		}),
	}
}

func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note after confirmation",
		ArgsUsage: "INDEX",
		Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
			token, err := indexArg(cmd)
			if err != nil {
				return err
			}
			n, err := app.Service().Resolve(token)
			if err != nil {
				return err
			}
			data, err := app.Service().Content(n)
			if err != nil {
				return err
			}
			fmt.Println("---")
			fmt.Println(strings.TrimSpace(string(data)))
			fmt.Println("---")
			fmt.Print("poi: delete (y/n)? ")
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.TrimSpace(answer) != "y" {
				fmt.Println("--->  cancelled")
				return nil
			}
			if err := app.Service().Delete(n); err != nil {
				return err
			}
			fmt.Println(n.Path)
			fmt.Println("---> deleted")
			return nil
		}),
	}
}

func randomCmd() *cli.Command {
	return &cli.Command{
		Name:  "random",
		Usage: "Show a random note",
		Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
			_, data, err := app.Service().Random()
			if err != nil {
				return err
			}
			return editor.Page(data)
		}),
	}
}

func sweepCmd() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Move notes back to their canonical year/month directories",
		Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
			moves, err := app.Service().Sweep()
			if err != nil {
				return err
			}
			for _, m := range moves {
				fmt.Printf("%s ---> %s\n", m.From, m.To)
			}
			return nil
		}),
	}
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the search index in sync while notes change on disk",
		Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
			return app.Watch(ctx)
		}),
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}
