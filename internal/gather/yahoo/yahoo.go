// Package yahoo implements gather.Source over the public Yahoo Finance chart
// and quoteSummary endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"finvestigator/internal/domain"
	"finvestigator/internal/gather"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2.0

	// DefaultCookieURL hands out the session cookie the crumb is bound to.
	DefaultCookieURL = "https://fc.yahoo.com"

	userAgent = "Mozilla/5.0"
)

// Compile-time interface check.
var _ gather.Source = (*Source)(nil)

// Source fetches bars and profiles from Yahoo Finance.
type Source struct {
	baseURL    string
	cookieURL  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger

	// quoteSummary rejects requests without a session cookie and the crumb
	// issued for it.
	crumbMu sync.Mutex
	crumb   string
}

// Option configures the Source.
type Option func(*Source)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *Source) {
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithCookieURL sets the page visited for a session cookie before a crumb
// is requested.
func WithCookieURL(cookieURL string) Option {
	return func(s *Source) {
		if cookieURL != "" {
			s.cookieURL = cookieURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client. A client without a cookie jar
// gets one, since profile lookups need the session cookie.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		if c.Jar == nil {
			c.Jar = newJar()
		}
		s.httpClient = c
	}
}

func newJar() http.CookieJar {
	jar, _ := cookiejar.New(nil) // only fails on a bad PublicSuffixList
	return jar
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the request rate. Burst is at least one.
func WithRateLimit(perSecond float64) Option {
	return func(s *Source) {
		if perSecond <= 0 {
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

// New creates a Yahoo Finance source.
func New(opts ...Option) *Source {
	s := &Source{
		baseURL:    DefaultBaseURL,
		cookieURL:  DefaultCookieURL,
		httpClient: &http.Client{Timeout: DefaultTimeout, Jar: newJar()},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("source", "yahoo")
	return s
}

// Name returns the source identifier.
func (s *Source) Name() string { return "yahoo" }

// apiError is the error object embedded in Yahoo responses.
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// chartResponse is the response structure from the v8 chart API. Prices are
// pointers because Yahoo reports holidays and halts as nulls.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// FetchBars returns daily bars in [r.Start, r.End].
func (s *Source) FetchBars(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
	// period2 is exclusive; include the whole end day.
	params.Set("period2", strconv.FormatInt(r.End.AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	var chart chartResponse
	err := s.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &chart)
	if err != nil {
		var se *gather.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("yahoo chart %s: %w", symbol, gather.ErrNoData)
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo chart %s: %w", symbol, gather.ErrNoData)
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, gather.ErrNoData
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]domain.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		day := time.Unix(ts, 0).UTC()
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    int64(at(quote.Volume, i)),
		})
	}
	if len(bars) == 0 {
		return nil, gather.ErrNoData
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	s.log.Debug("fetched bars", "symbol", symbol, "count", len(bars), "range", r.Key())
	return bars, nil
}

// quoteSummaryResponse is the subset of the v10 quoteSummary response used
// for the company profile.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Industry            string `json:"industry"`
				Sector              string `json:"sector"`
				Country             string `json:"country"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// FetchProfile returns the company profile. Fields Yahoo omits are left
// empty.
func (s *Source) FetchProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var qs quoteSummaryResponse
	err := s.quoteSummary(ctx, symbol, &qs)
	if err != nil {
		var se *gather.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("yahoo profile %s: %w", symbol, gather.ErrNoProfile)
		}
		return nil, fmt.Errorf("yahoo profile %s: %w", symbol, err)
	}
	if qs.QuoteSummary.Error != nil {
		if qs.QuoteSummary.Error.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo profile %s: %w", symbol, gather.ErrNoProfile)
		}
		return nil, fmt.Errorf("yahoo api error: %s", qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo profile %s: %w", symbol, gather.ErrNoProfile)
	}

	res := qs.QuoteSummary.Result[0]
	name := res.Price.LongName
	if name == "" {
		name = res.Price.ShortName
	}
	return &domain.CompanyProfile{
		Symbol:   symbol,
		Name:     name,
		Industry: res.AssetProfile.Industry,
		Sector:   res.AssetProfile.Sector,
		Country:  res.AssetProfile.Country,
		Summary:  res.AssetProfile.LongBusinessSummary,
	}, nil
}

// quoteSummary fetches the profile modules with a crumb. A 401 means the
// crumb expired: it is dropped and the request retried once with a new one.
func (s *Source) quoteSummary(ctx context.Context, symbol string, qs *quoteSummaryResponse) error {
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)
	for attempt := 0; ; attempt++ {
		crumb, err := s.sessionCrumb(ctx)
		if err != nil {
			return err
		}
		params := url.Values{}
		params.Set("modules", "assetProfile,price")
		params.Set("crumb", crumb)

		err = s.get(ctx, path, params, qs)
		var se *gather.StatusError
		if attempt == 0 && errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			s.log.Debug("crumb rejected, refreshing", "symbol", symbol)
			s.resetCrumb()
			continue
		}
		return err
	}
}

// sessionCrumb returns the cached crumb, performing the cookie and crumb
// handshake on first use.
func (s *Source) sessionCrumb(ctx context.Context) (string, error) {
	s.crumbMu.Lock()
	defer s.crumbMu.Unlock()
	if s.crumb != "" {
		return s.crumb, nil
	}

	// The cookie page answers 404 but still sets the cookie.
	if err := s.visit(ctx, s.cookieURL); err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}

	body, err := s.fetch(ctx, s.baseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", fmt.Errorf("yahoo crumb: unexpected body %q", truncate(crumb, 40))
	}
	s.crumb = crumb
	return crumb, nil
}

func (s *Source) resetCrumb() {
	s.crumbMu.Lock()
	s.crumb = ""
	s.crumbMu.Unlock()
}

// visit GETs rawURL for its cookies and ignores the status.
func (s *Source) visit(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// get performs a rate-limited GET and decodes the JSON body into result.
func (s *Source) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := s.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	body, err := s.fetch(ctx, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// fetch GETs reqURL and returns the body of a 200 response.
func (s *Source) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Yahoo still returns a JSON error object on 404.
		if resp.StatusCode == http.StatusNotFound {
			return nil, &gather.StatusError{Source: "yahoo", Code: resp.StatusCode}
		}
		return nil, &gather.StatusError{Source: "yahoo", Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
