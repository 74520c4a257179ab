// Package api serves the name index, pattern resolution and dynamic sections
// over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
	"github.com/hayeah/runlens/section"
	"github.com/hayeah/runlens/store"
	"github.com/hayeah/runlens/widget"
)

const shutdownTimeout = 5 * time.Second

// NameIndex is a name source that also accepts new names.
type NameIndex interface {
	names.Source
	Index(ctx context.Context, recs []store.Record) error
}

// Resolver resolves a pattern for a run selection.
type Resolver interface {
	Resolve(ctx context.Context, p resolver.Pattern, runIDs []string) resolver.Result
}

type Server struct {
	Names      NameIndex
	Resolver   Resolver
	Sections   *section.Store
	MaxWidgets int
	Logger     *slog.Logger
	// OnIndexed runs after names were added, e.g. to drop cached snapshots.
	OnIndexed func()

	echo *echo.Echo
}

func New(idx NameIndex, r Resolver, sections *section.Store, maxWidgets int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxWidgets <= 0 {
		maxWidgets = widget.DefaultCap
	}
	s := &Server{
		Names:      idx,
		Resolver:   r,
		Sections:   sections,
		MaxWidgets: maxWidgets,
		Logger:     logger,
	}
	s.echo = s.routes()
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(s.Logger.With("component", "api")))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := e.Group("/api")
	g.GET("/names", s.getNames)
	g.POST("/names", s.postNames)
	g.GET("/resolve", s.getResolve)
	g.GET("/sections", s.listSections)
	g.POST("/sections", s.addSection)
	g.PUT("/sections/:id", s.updateSection)
	g.DELETE("/sections/:id", s.removeSection)
	g.GET("/sections/:id/widgets", s.sectionWidgets)
	return e
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()
	s.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) getNames(c echo.Context) error {
	q := names.Query{
		RunIDs: parseRuns(c.QueryParam("runs")),
		Search: strings.TrimSpace(c.QueryParam("search")),
		Regex:  c.QueryParam("regex"),
	}
	if k := c.QueryParam("kind"); k != "" {
		kind, err := names.ParseKind(k)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		q.Kind = kind
	}
	if q.Regex != "" {
		if err := store.ValidateRegex(q.Regex); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	ns, err := s.Names.FetchNames(c.Request().Context(), q)
	if err != nil {
		return s.httpError(err)
	}
	if ns == nil {
		ns = []names.Name{}
	}
	return c.JSON(http.StatusOK, ns)
}

func (s *Server) postNames(c echo.Context) error {
	var recs []store.Record
	if err := c.Bind(&recs); err != nil {
		return err
	}
	if err := s.Names.Index(c.Request().Context(), recs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.OnIndexed != nil {
		s.OnIndexed()
	}
	s.Logger.Debug("indexed names", "records", len(recs))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getResolve(c echo.Context) error {
	mode, err := resolver.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := resolver.Pattern{Text: c.QueryParam("pattern"), Mode: mode}
	res := s.Resolver.Resolve(c.Request().Context(), p, parseRuns(c.QueryParam("runs")))
	return c.JSON(http.StatusOK, res)
}

func (s *Server) listSections(c echo.Context) error {
	secs, err := s.Sections.List(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, secs)
}

func (s *Server) addSection(c echo.Context) error {
	var sec section.Section
	if err := c.Bind(&sec); err != nil {
		return err
	}
	added, err := s.Sections.Add(c.Request().Context(), sec)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusCreated, added)
}

func (s *Server) updateSection(c echo.Context) error {
	var p resolver.Pattern
	if err := c.Bind(&p); err != nil {
		return err
	}
	updated, err := s.Sections.SetPattern(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) removeSection(c echo.Context) error {
	if err := s.Sections.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return s.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) sectionWidgets(c echo.Context) error {
	ctx := c.Request().Context()
	sec, err := s.Sections.Get(ctx, c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	limit := s.MaxWidgets
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, s.MaxWidgets)
	}
	return c.JSON(http.StatusOK, section.Generate(ctx, s.Resolver, sec, parseRuns(c.QueryParam("runs")), limit))
}

func (s *Server) httpError(err error) error {
	switch {
	case errors.Is(err, section.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, section.ErrExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, section.ErrInvalid),
		errors.Is(err, store.ErrUnsafePattern),
		errors.Is(err, store.ErrInvalidPattern):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.Logger.Error("request failed", "err", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

// parseRuns splits a comma-separated run list, dropping blanks.
func parseRuns(raw string) []string {
	var runs []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			runs = append(runs, r)
		}
	}
	return runs
}
