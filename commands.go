package runlens

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"

	"github.com/hayeah/runlens/internal/preview"
	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
	"github.com/hayeah/runlens/section"
	"github.com/hayeah/runlens/store"
)

const ingestBatchSize = 500

func (app *App) runServe(ctx context.Context, cmd *ServeCmd) error {
	return app.Server.Serve(ctx, app.Config.Listen)
}

func (app *App) runIngest(ctx context.Context, cmd *IngestCmd) error {
	var r io.Reader = os.Stdin
	if cmd.File != "" && cmd.File != "-" {
		f, err := os.Open(cmd.File)
		if err != nil {
			return fmt.Errorf("open %s: %w", cmd.File, err)
		}
		defer f.Close()
		r = f
	}

	recs, err := readRecords(r)
	if err != nil {
		return err
	}
	for _, batch := range lo.Chunk(recs, ingestBatchSize) {
		if err := app.Index.Index(ctx, batch); err != nil {
			return fmt.Errorf("index names: %w", err)
		}
	}
	app.Source.Purge()
	app.Logger.Info("ingested names", "records", len(recs), "project", app.Config.Project)
	return nil
}

// readRecords decodes one record per line, skipping blank lines.
func readRecords(r io.Reader) ([]store.Record, error) {
	var recs []store.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec store.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return recs, nil
}

func (app *App) runNames(ctx context.Context, cmd *NamesCmd) error {
	runIDs, err := app.runIDs(ctx, cmd.RunSelection)
	if err != nil {
		return err
	}
	q := names.Query{RunIDs: runIDs, Search: cmd.Search, Regex: cmd.Regex}
	if cmd.Kind != "" {
		if q.Kind, err = names.ParseKind(cmd.Kind); err != nil {
			return err
		}
	}

	if cmd.Groups {
		groups, err := app.groups(ctx, q)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if g == "" {
				g = "(root)"
			}
			fmt.Fprintln(app.Out, g)
		}
		return nil
	}

	kinds := names.Kinds
	if q.Kind != "" {
		kinds = []names.Kind{q.Kind}
	}
	w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	for _, kind := range kinds {
		q.Kind = kind
		ns, err := app.Index.FetchNames(ctx, q)
		if err != nil {
			return err
		}
		for _, n := range ns {
			fmt.Fprintf(w, "%s\t%s\t%s\n", n.Kind, n.Name, n.LogType)
		}
	}
	return w.Flush()
}

// groups lists the log groups of the names q selects. A remote index is asked
// for the names themselves since the local store is empty.
func (app *App) groups(ctx context.Context, q names.Query) ([]string, error) {
	if app.Config.RemoteURL == "" {
		return app.Store.Groups(ctx, q)
	}
	kinds := names.Kinds
	if q.Kind != "" {
		kinds = []names.Kind{q.Kind}
	}
	var groups []string
	for _, kind := range kinds {
		q.Kind = kind
		ns, err := app.Index.FetchNames(ctx, q)
		if err != nil {
			return nil, err
		}
		groups = append(groups, lo.Map(ns, func(n names.Name, _ int) string { return names.GroupOf(n.Name) })...)
	}
	groups = lo.Uniq(groups)
	sort.Strings(groups)
	return groups, nil
}

func (app *App) runResolve(ctx context.Context, cmd *ResolveCmd) error {
	runIDs, err := app.runIDs(ctx, cmd.RunSelection)
	if err != nil {
		return err
	}
	res := app.Resolver.Resolve(ctx, resolver.Pattern{Text: cmd.Pattern, Mode: patternMode(cmd.Regex)}, runIDs)
	if cmd.JSON {
		return writeJSON(app.Out, res)
	}
	if res.Invalid {
		return errors.New(resolver.InvalidRegexMessage)
	}
	for _, n := range res.Matches {
		fmt.Fprintln(app.Out, n.Name)
	}
	return nil
}

func (app *App) runWidgets(ctx context.Context, cmd *WidgetsCmd) error {
	sec, err := app.Sections.Get(ctx, cmd.Section)
	if err != nil {
		return err
	}
	runIDs, err := app.runIDs(ctx, cmd.RunSelection)
	if err != nil {
		return err
	}
	limit := app.Config.MaxWidgets
	if cmd.Limit > 0 {
		limit = min(cmd.Limit, limit)
	}
	w := section.Generate(ctx, app.Resolver, sec, runIDs, limit)
	if !cmd.Names {
		return writeJSON(app.Out, w)
	}
	if w.Invalid {
		return errors.New(resolver.InvalidRegexMessage)
	}
	for _, name := range w.Names() {
		fmt.Fprintln(app.Out, name)
	}
	return nil
}

func (app *App) runSection(ctx context.Context, cmd *SectionCmd) error {
	switch {
	case cmd.Add != nil:
		sec, err := app.Sections.Add(ctx, section.Section{
			ID:      cmd.Add.ID,
			Name:    cmd.Add.Name,
			Pattern: cmd.Add.Pattern,
			Mode:    patternMode(cmd.Add.Regex),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out, sec.ID)
		return nil
	case cmd.Ls != nil:
		secs, err := app.Sections.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODE\tPATTERN")
		for _, sec := range secs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sec.ID, sec.Name, sec.Mode, sec.Pattern)
		}
		return w.Flush()
	case cmd.Rm != nil:
		return app.Sections.Remove(ctx, cmd.Rm.ID)
	default:
		return fmt.Errorf("no section subcommand specified, use 'add', 'ls' or 'rm'")
	}
}

func (app *App) runPreview(ctx context.Context, cmd *PreviewCmd) error {
	runIDs, err := app.runIDs(ctx, cmd.RunSelection)
	if err != nil {
		return err
	}

	// Log lines would tear the alternate screen.
	quiet := *app.Resolver
	quiet.Logger = slog.New(slog.DiscardHandler)

	p, confirmed, err := preview.Run(ctx, &quiet, runIDs,
		resolver.Pattern{Text: cmd.Pattern, Mode: patternMode(cmd.Regex)},
		preview.Options{
			Debounce: app.Config.Debounce.Duration,
			Timeout:  app.Config.FetchTimeout.Duration,
			Logger:   quiet.Logger,
		})
	if err != nil {
		return err
	}
	if !confirmed || p.Empty() {
		return nil
	}

	if cmd.Save != "" {
		sec, err := app.Sections.Add(ctx, section.Section{Name: cmd.Save, Pattern: p.Text, Mode: p.Mode})
		if err != nil {
			return err
		}
		app.Logger.Info("saved section", "id", sec.ID, "name", sec.Name, "pattern", sec.Pattern, "mode", sec.Mode)
	}
	fmt.Fprintln(app.Out, p.Text)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
