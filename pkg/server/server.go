package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/circuit"
	"github.com/matzehuels/floorplan/pkg/config"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/layers"
	"github.com/matzehuels/floorplan/pkg/observability"
	"github.com/matzehuels/floorplan/pkg/render"
	"github.com/matzehuels/floorplan/pkg/report"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

// Server serves a drawing and its configuration over HTTP. The drawing is
// read again for every request, so edits show up without a restart.
type Server struct {
	Document string
	Config   *config.Config
	Logger   *log.Logger
}

// New creates a server for the drawing at path.
func New(path string, cfg *config.Config, logger *log.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{Document: path, Config: cfg, Logger: logger}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/layers", s.handleLayers)
		r.Get("/circuits", s.handleCircuits)
		r.Get("/sets", s.handleSets)
		r.Route("/sets/{set}/{output}/pages", func(r chi.Router) {
			r.Get("/{page}/mask", s.handleMask)
			r.Get("/{page}.svg", s.handlePage)
		})
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.Logger.Info("serving", "addr", addr, "document", s.Document)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// =============================================================================
// Handlers
// =============================================================================

type layerJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Parent   string   `json:"parent,omitempty"`
	Hidden   bool     `json:"hidden"`
	Visible  bool     `json:"visible"` // Effective visibility as stored
	Depth    int      `json:"depth"`
	Children []string `json:"children,omitempty"`
	Elements int      `json:"elements"`
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	_, m, err := s.load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]layerJSON, 0, len(m.Layers()))
	for _, l := range m.Layers() {
		visible, _ := m.EffectivelyVisible(l.ID)
		elems, _ := m.ElementsOf(l.ID)
		out = append(out, layerJSON{
			ID:       l.ID,
			Name:     l.Name,
			Parent:   l.Parent,
			Hidden:   l.Hidden,
			Visible:  visible,
			Depth:    l.Depth,
			Children: l.Children,
			Elements: len(elems),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type validationJSON struct {
	Error    string            `json:"error"`
	Code     ferrors.Code      `json:"code"`
	Issues   []circuit.Issue   `json:"issues"`
	Manifest *circuit.Manifest `json:"manifest,omitempty"`
}

func (s *Server) handleCircuits(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}
	if err := report.ValidateFormat(format); err != nil {
		s.writeError(w, err)
		return
	}
	_, m, err := s.load(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	start := time.Now()
	manifest, err := circuit.Build(m, s.Config.Circuits)
	if manifest != nil {
		observability.Pipeline().OnBuildComplete(r.Context(), len(manifest.Circuits), len(manifest.Warnings), time.Since(start), err)
	}
	if err != nil {
		var verrs *circuit.ValidationErrors
		if errors.As(err, &verrs) {
			issues := make([]circuit.Issue, len(verrs.Errors))
			for i, e := range verrs.Errors {
				issues[i] = e.Issue
			}
			writeJSON(w, http.StatusUnprocessableEntity, validationJSON{
				Error:    ferrors.UserMessage(err),
				Code:     ferrors.ErrCodeCircuitValidation,
				Issues:   issues,
				Manifest: manifest,
			})
			return
		}
		s.writeError(w, err)
		return
	}

	data, err := report.Marshal(manifest, format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentTypes[format])
	_, _ = w.Write(data)
}

type outputJSON struct {
	Filename string     `json:"filename"`
	Title    string     `json:"title,omitempty"`
	Format   string     `json:"format"`
	Pages    []pageJSON `json:"pages"`
}

type pageJSON struct {
	Subtitle string   `json:"subtitle,omitempty"`
	Layers   []string `json:"layers"`
}

func (s *Server) handleSets(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]outputJSON)
	for _, name := range s.Config.SetNames() {
		outputs, err := s.Config.Set(name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		list := make([]outputJSON, len(outputs))
		for i, o := range outputs {
			pages := make([]pageJSON, len(o.Pages))
			for j, p := range o.Pages {
				pages[j] = pageJSON{Subtitle: p.Subtitle, Layers: p.Layers}
			}
			list[i] = outputJSON{Filename: o.Filename, Title: o.Title, Format: o.Format, Pages: pages}
		}
		out[name] = list
	}
	writeJSON(w, http.StatusOK, out)
}

type maskJSON struct {
	Set     string          `json:"set"`
	Output  string          `json:"output"`
	Page    int             `json:"page"`
	Visible []string        `json:"visible"`
	Layers  map[string]bool `json:"layers"`
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, maskJSON{
		Set:     p.set,
		Output:  p.output.Filename,
		Page:    p.index + 1,
		Visible: p.mask.VisibleIDs(),
		Layers:  p.mask.Map(),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, err := s.page(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, page := p.output, p.output.Pages[p.index]
	date := time.Now().Format(render.DateFormat)
	svg, err := render.Compose(render.Request{
		Document: p.doc,
		Mask:     p.mask,
		Width:    out.Width,
		Height:   out.Height,
		Opacity:  page.Opacity,
		Texts:    render.TitleBlock(out.Title, page.Subtitle, date, p.index, len(out.Pages), page.Texts),
		Output:   out.Filename,
		Page:     p.index,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// =============================================================================
// Helpers
// =============================================================================

type resolvedPage struct {
	set    string
	output config.Output
	index  int
	doc    *svgdoc.Document
	mask   layers.Mask
}

// page resolves the {set}/{output}/pages/{page} route parameters. Pages are
// numbered from 1.
func (s *Server) page(r *http.Request) (resolvedPage, error) {
	set := chi.URLParam(r, "set")
	out, err := s.Config.Output(set, chi.URLParam(r, "output"))
	if err != nil {
		return resolvedPage{}, err
	}
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || n < 1 || n > len(out.Pages) {
		return resolvedPage{}, ferrors.New(ferrors.ErrCodeNotFound,
			"%s has no page %q (pages 1-%d)", out.Filename, chi.URLParam(r, "page"), len(out.Pages))
	}
	doc, m, err := s.load(r.Context())
	if err != nil {
		return resolvedPage{}, err
	}
	mask, err := layers.Resolve(out.Pages[n-1].Selection(out.Filename), m)
	if err != nil {
		return resolvedPage{}, err
	}
	return resolvedPage{set: set, output: out, index: n - 1, doc: doc, mask: mask}, nil
}

func (s *Server) load(ctx context.Context) (*svgdoc.Document, *annotation.Model, error) {
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnLoadStart(ctx, s.Document)
	doc, err := svgdoc.ReadFile(s.Document)
	if err != nil {
		hooks.OnLoadComplete(ctx, s.Document, 0, time.Since(start), err)
		return nil, nil, err
	}
	m, err := annotation.Load(doc, s.Config.Vocabulary)
	if err != nil {
		hooks.OnLoadComplete(ctx, s.Document, 0, time.Since(start), err)
		return nil, nil, err
	}
	hooks.OnLoadComplete(ctx, s.Document, len(m.LayerIDs()), time.Since(start), nil)
	return doc, m, nil
}

type errorJSON struct {
	Error string       `json:"error"`
	Code  ferrors.Code `json:"code,omitempty"`
}

// statusCodes maps error codes to HTTP status codes.
var statusCodes = map[ferrors.Code]int{
	ferrors.ErrCodeNotFound:              http.StatusNotFound,
	ferrors.ErrCodeFileNotFound:          http.StatusNotFound,
	ferrors.ErrCodeInvalidInput:          http.StatusBadRequest,
	ferrors.ErrCodeInvalidFormat:         http.StatusBadRequest,
	ferrors.ErrCodeUnknownLayerReference: http.StatusUnprocessableEntity,
	ferrors.ErrCodeUnknownLayer:          http.StatusUnprocessableEntity,
	ferrors.ErrCodeCircuitValidation:     http.StatusUnprocessableEntity,
	ferrors.ErrCodeRenderFailure:         http.StatusBadGateway,
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := ferrors.GetCode(err)
	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		s.Logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorJSON{Error: ferrors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// =============================================================================
// Middleware
// =============================================================================

// requestID tags each request with an X-Request-ID, keeping one supplied by
// the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}
