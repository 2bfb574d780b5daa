package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"finvestigator/internal/dashboard"
	"finvestigator/internal/domain"
	"finvestigator/pkg/finvestigator"
)

//go:embed templates/*.html
var templateFS embed.FS

// Dashboard is what the server drives: the page actions plus the per-part
// lookups and cache controls of the JSON API.
type Dashboard interface {
	dashboard.Service
	Bars(ctx context.Context, ticker string) (domain.Series, error)
	Profile(ctx context.Context, ticker string) (*domain.CompanyProfile, error)
	Forecast(ctx context.Context, ticker string, years int) (*dashboard.ForecastResult, error)
	Symbols(ctx context.Context) ([]string, error)
	Invalidate(ticker string) int
	Purge() int
}

// Server serves the dashboard HTML pages and JSON API.
type Server struct {
	dash  Dashboard
	log   *slog.Logger
	pages *template.Template
}

// NewServer creates a new dashboard HTTP server.
func NewServer(dash Dashboard, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		dash:  dash,
		log:   log.With("component", "http"),
		pages: template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")),
	}
}

// RegisterRoutes registers all page and API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /{page}", s.handlePage)

	mux.HandleFunc("GET /api/home", s.handleHome)
	mux.HandleFunc("GET /api/bars/{symbol}", s.handleBars)
	mux.HandleFunc("GET /api/profile/{symbol}", s.handleProfile)
	mux.HandleFunc("GET /api/forecast/{symbol}", s.handleForecast)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/disclaimer", s.handleDisclaimer)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("DELETE /api/cache", s.handlePurge)
	mux.HandleFunc("DELETE /api/cache/{symbol}", s.handleInvalidate)
}

// Handler returns an http.Handler with logging, CORS and recovery
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.loggingMiddleware(corsMiddleware(s.recoveryMiddleware(mux)))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// writeNotice writes err as a notice body with a status derived from its
// kind.
func writeNotice(w http.ResponseWriter, err error) {
	n := dashboard.AsNotice(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(noticeStatus(n))
	json.NewEncoder(w).Encode(EncodeNotice(n))
}

func noticeStatus(n *dashboard.Notice) int {
	switch n.Kind {
	case dashboard.KindInput:
		return http.StatusBadRequest
	case dashboard.KindNoData:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// parseYears reads the "years" query param. Missing means one year.
func parseYears(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("years"))
	if v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &dashboard.Notice{Kind: dashboard.KindInput, Message: dashboard.MsgYearsRange, Err: err}
	}
	return n, nil
}

func parseLimit(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	years, err := parseYears(r)
	if err != nil {
		writeNotice(w, err)
		return
	}
	view, err := s.dash.Home(r.Context(), dashboard.HomeRequest{Ticker: r.URL.Query().Get("ticker"), Years: years})
	if err != nil {
		writeNotice(w, err)
		return
	}
	writeJSON(w, EncodeHome(view))
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	bars, err := s.dash.Bars(r.Context(), symbol)
	if err != nil {
		writeNotice(w, err)
		return
	}
	if tail := parseLimit(r, "tail"); tail > 0 {
		bars = bars.Tail(tail)
	}
	writeJSON(w, finvestigator.BarsResponse{Symbol: symbol, Bars: EncodeBars(bars)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.dash.Profile(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeNotice(w, err)
		return
	}
	writeJSON(w, EncodeProfile(*p))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	years, err := parseYears(r)
	if err != nil {
		writeNotice(w, err)
		return
	}
	f, err := s.dash.Forecast(r.Context(), r.PathValue("symbol"), years)
	if err != nil {
		writeNotice(w, err)
		return
	}
	writeJSON(w, EncodeForecast(f))
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	view, err := s.dash.News(r.Context())
	if err != nil {
		writeNotice(w, err)
		return
	}
	writeJSON(w, EncodeNews(view))
}

func (s *Server) handleDisclaimer(w http.ResponseWriter, r *http.Request) {
	view, err := s.dash.Disclaimer(r.Context())
	if err != nil {
		writeNotice(w, err)
		return
	}
	writeJSON(w, EncodeDisclaimer(view))
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	runs, err := s.dash.Recent(r.Context(), parseLimit(r, "limit"))
	if err != nil {
		writeNotice(w, err)
		return
	}
	writeJSON(w, EncodeRuns(runs))
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.dash.Symbols(r.Context())
	if err != nil {
		writeNotice(w, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, finvestigator.SymbolsResponse{Symbols: symbols})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, finvestigator.CacheResponse{Removed: s.dash.Purge()})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	n := s.dash.Invalidate(symbol)
	writeJSON(w, finvestigator.CacheResponse{Symbol: symbol, Removed: n})
}
