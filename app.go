package runlens

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hayeah/runlens/api"
	"github.com/hayeah/runlens/internal/config"
	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
	"github.com/hayeah/runlens/section"
	"github.com/hayeah/runlens/store"
)

// Args defines the command-line arguments with subcommands. Global flags
// override the config file.
type Args struct {
	Config    string `arg:"-c,--config,env:RUNLENS_CONFIG" help:"config file (default ~/.config/runlens/config.toml)"`
	DB        string `arg:"--db,env:RUNLENS_DB" help:"name index database"`
	Remote    string `arg:"--remote,env:RUNLENS_REMOTE" help:"resolve names against a runlens server at this URL"`
	Project   string `arg:"-p,--project,env:RUNLENS_PROJECT" help:"project to scope names to"`
	LogLevel  string `arg:"--log-level,env:RUNLENS_LOG_LEVEL" help:"debug, info, warn or error"`
	LogFormat string `arg:"--log-format,env:RUNLENS_LOG_FORMAT" help:"auto, dev, json or text"`

	Serve   *ServeCmd   `arg:"subcommand:serve" help:"Serve the HTTP API"`
	Ingest  *IngestCmd  `arg:"subcommand:ingest" help:"Index names from a JSON-lines file"`
	Names   *NamesCmd   `arg:"subcommand:names" help:"List indexed names for runs"`
	Resolve *ResolveCmd `arg:"subcommand:resolve" help:"Resolve a pattern to the names it selects"`
	Widgets *WidgetsCmd `arg:"subcommand:widgets" help:"Generate the widgets of a dynamic section"`
	Section *SectionCmd `arg:"subcommand:section" help:"Manage dynamic sections"`
	Preview *PreviewCmd `arg:"subcommand:preview" help:"Edit a pattern with a live preview of its matches"`
}

// RunSelection is embedded by commands that work on a set of runs.
type RunSelection struct {
	Runs []string `arg:"-r,--runs,separate" help:"run IDs, comma separated or repeated (default: every run in the project)"`
}

type ServeCmd struct {
	Listen string `arg:"-l,--listen" help:"listen address (overrides listen)"`
}

type IngestCmd struct {
	File string `arg:"positional" default:"-" help:"JSON-lines file of {runId, kind, name, logType} records, - for stdin"`
}

type NamesCmd struct {
	RunSelection
	Kind   string `arg:"-k,--kind" help:"metric or file (default both)"`
	Search string `arg:"-s,--search" help:"multi-term search filter"`
	Regex  string `arg:"-e,--regex" help:"regex filter"`
	Groups bool   `arg:"--groups" help:"list log groups instead of names"`
}

type ResolveCmd struct {
	RunSelection
	Pattern string `arg:"positional,required" help:"search text, glob or regex"`
	Regex   bool   `arg:"-x,--regex" help:"interpret the pattern as a regular expression"`
	JSON    bool   `arg:"--json" help:"print the full result as JSON"`
}

type WidgetsCmd struct {
	RunSelection
	Section string `arg:"positional,required" help:"section ID"`
	Limit   int    `arg:"-n,--limit" help:"maximum widgets (default max_widgets)"`
	Names   bool   `arg:"--names" help:"print the names behind the widgets instead of JSON"`
}

type SectionCmd struct {
	Add *SectionAddCmd `arg:"subcommand:add" help:"Add a dynamic section"`
	Ls  *SectionLsCmd  `arg:"subcommand:ls" help:"List dynamic sections"`
	Rm  *SectionRmCmd  `arg:"subcommand:rm" help:"Remove a dynamic section"`
}

type SectionAddCmd struct {
	Pattern string `arg:"positional,required" help:"search text, glob or regex"`
	Regex   bool   `arg:"-x,--regex" help:"interpret the pattern as a regular expression"`
	Name    string `arg:"--name" help:"display name"`
	ID      string `arg:"--id" help:"section ID, without \"metric\" or \"file\" dash segments (default: generated)"`
}

type SectionLsCmd struct{}

type SectionRmCmd struct {
	ID string `arg:"positional,required" help:"section ID"`
}

type PreviewCmd struct {
	RunSelection
	Pattern string `arg:"positional" help:"initial pattern"`
	Regex   bool   `arg:"-x,--regex" help:"start in regex mode"`
	Save    string `arg:"--save" help:"on Enter, save the pattern as a section with this name"`
}

// App holds the wired dependencies of the CLI.
type App struct {
	Args     *Args
	Config   *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Index    api.NameIndex
	Source   *names.CachedSource
	Resolver *resolver.Resolver
	Sections *section.Store
	Server   *api.Server

	Out io.Writer `wire:"-"`
}

// Run dispatches to the selected subcommand.
func (app *App) Run(ctx context.Context) error {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	args := app.Args

	switch {
	case args.Serve != nil:
		return app.runServe(ctx, args.Serve)
	case args.Ingest != nil:
		return app.runIngest(ctx, args.Ingest)
	case args.Names != nil:
		return app.runNames(ctx, args.Names)
	case args.Resolve != nil:
		return app.runResolve(ctx, args.Resolve)
	case args.Widgets != nil:
		return app.runWidgets(ctx, args.Widgets)
	case args.Section != nil:
		return app.runSection(ctx, args.Section)
	case args.Preview != nil:
		return app.runPreview(ctx, args.Preview)
	default:
		return fmt.Errorf("no subcommand specified, use 'serve', 'ingest', 'names', 'resolve', 'widgets', 'section' or 'preview'")
	}
}

// runIDs expands the --runs flag. Without it, every run indexed locally for
// the project is used.
func (app *App) runIDs(ctx context.Context, sel RunSelection) ([]string, error) {
	var runs []string
	for _, r := range sel.Runs {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				runs = append(runs, part)
			}
		}
	}
	if len(runs) > 0 {
		return runs, nil
	}
	if app.Config.RemoteURL != "" {
		return nil, fmt.Errorf("--runs is required with a remote index")
	}
	runs, err := app.Store.Runs(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs indexed for project %q", app.Config.Project)
	}
	return runs, nil
}

func patternMode(regex bool) resolver.Mode {
	if regex {
		return resolver.ModeRegex
	}
	return resolver.ModeSearch
}
