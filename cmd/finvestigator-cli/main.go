package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"finvestigator/pkg/finvestigator"
)

const version = "0.1.0"

const defaultServer = "http://localhost:8501"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: finvestigator-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version      Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  home         Load a ticker and forecast it (-ticker, -years)\n")
	fmt.Fprintf(os.Stderr, "  bars         Print the raw series (-symbol, -tail)\n")
	fmt.Fprintf(os.Stderr, "  profile      Print the company profile (-symbol)\n")
	fmt.Fprintf(os.Stderr, "  forecast     Print the forecast tail (-symbol, -years, -tail)\n")
	fmt.Fprintf(os.Stderr, "  news         Print the latest market news\n")
	fmt.Fprintf(os.Stderr, "  recent       List recorded forecasts (-limit)\n")
	fmt.Fprintf(os.Stderr, "  symbols      List symbols held in the bar archive\n")
	fmt.Fprintf(os.Stderr, "  purge        Drop every cached series\n")
	fmt.Fprintf(os.Stderr, "  invalidate   Drop cached series for a symbol (-symbol)\n")
	fmt.Fprintf(os.Stderr, "\nEvery command accepts -server (default $FINVESTIGATOR_URL or %s) and -json.\n", defaultServer)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "version" {
		fmt.Printf("finvestigator-cli %s\n", version)
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	server := fs.String("server", serverFromEnv(), "finvestigator server URL")
	asJSON := fs.Bool("json", false, "print the raw JSON response")
	ticker := fs.String("ticker", "", "ticker symbol")
	symbol := fs.String("symbol", "", "ticker symbol")
	years := fs.Int("years", 1, "years of prediction (1-6)")
	tail := fs.Int("tail", 5, "rows to print from the end")
	limit := fs.Int("limit", 10, "runs to list")
	fs.Parse(os.Args[2:])

	if *symbol == "" {
		*symbol = *ticker
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := finvestigator.NewClient(*server)
	out := printer{json: *asJSON}

	var err error
	switch cmd {
	case "home":
		var resp *finvestigator.HomeResponse
		if resp, err = client.Home(ctx, *symbol, *years); err == nil {
			out.home(resp, *tail)
		}
	case "bars":
		var resp *finvestigator.BarsResponse
		if resp, err = client.Bars(ctx, *symbol, *tail); err == nil {
			out.bars(resp.Bars)
		}
	case "profile":
		var resp *finvestigator.Profile
		if resp, err = client.Profile(ctx, *symbol); err == nil {
			out.profile(resp)
		}
	case "forecast":
		var resp *finvestigator.Forecast
		if resp, err = client.Forecast(ctx, *symbol, *years); err == nil {
			out.forecast(resp, *tail)
		}
	case "news":
		var resp *finvestigator.NewsResponse
		if resp, err = client.News(ctx); err == nil {
			out.news(resp)
		}
	case "recent":
		var runs []finvestigator.Run
		if runs, err = client.Recent(ctx, *limit); err == nil {
			out.runs(runs)
		}
	case "symbols":
		var symbols []string
		if symbols, err = client.Symbols(ctx); err == nil {
			out.symbols(symbols)
		}
	case "purge":
		var n int
		if n, err = client.Purge(ctx); err == nil {
			out.removed("", n)
		}
	case "invalidate":
		var n int
		if n, err = client.Invalidate(ctx, *symbol); err == nil {
			out.removed(*symbol, n)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func serverFromEnv() string {
	if v := os.Getenv("FINVESTIGATOR_URL"); v != "" {
		return v
	}
	return defaultServer
}

type printer struct {
	json bool
}

// raw prints v as indented JSON and reports whether it did.
func (p printer) raw(v any) bool {
	if !p.json {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
	return true
}

func (p printer) home(r *finvestigator.HomeResponse, tail int) {
	if p.raw(r) {
		return
	}
	p.profile(&r.Profile)
	s := r.Stats
	fmt.Printf("\n%s  %s .. %s  (%d bars, %d year forecast)\n", r.Symbol, s.FirstDate, s.LastDate, s.Bars, r.Years)
	fmt.Printf("close %.2f  change %+.2f%%  high %.2f  low %.2f  max gain %.2f%%  max loss %.2f%%\n\n",
		s.Close, s.Change*100, s.High, s.Low, s.MaxGain*100, s.MaxLoss*100)
	bars := r.Bars
	if tail > 0 && len(bars) > tail {
		bars = bars[len(bars)-tail:]
	}
	p.bars(bars)
	fmt.Println()
	p.forecast(&r.Forecast, tail)
}

func (p printer) bars(bars []finvestigator.Bar) {
	if p.raw(bars) {
		return
	}
	fmt.Printf("%-12s %12s %12s %12s %12s %14s\n", "Date", "Open", "High", "Low", "Close", "Volume")
	for _, b := range bars {
		fmt.Printf("%-12s %12.2f %12.2f %12.2f %12.2f %14d\n", b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}
}

func (p printer) profile(pr *finvestigator.Profile) {
	if p.raw(pr) {
		return
	}
	fmt.Printf("%s  %s\n", pr.Symbol, pr.Name)
	for _, kv := range [][2]string{{"Industry", pr.Industry}, {"Sector", pr.Sector}, {"Country", pr.Country}} {
		if kv[1] != "" {
			fmt.Printf("  %-9s %s\n", kv[0]+":", kv[1])
		}
	}
	if pr.Summary != "" {
		fmt.Printf("  %s\n", pr.Summary)
	}
}

func (p printer) forecast(f *finvestigator.Forecast, tail int) {
	if p.raw(f) {
		return
	}
	rows := f.Rows
	if tail > 0 && len(rows) > tail {
		rows = rows[len(rows)-tail:]
	}
	fmt.Printf("%s forecast: %d history rows, %d days ahead\n", f.Symbol, f.HistoryRows, f.Horizon)
	fmt.Printf("%-12s %12s %12s %12s %12s\n", "ds", "yhat", "yhat_lower", "yhat_upper", "trend")
	for _, r := range rows {
		fmt.Printf("%-12s %12.2f %12.2f %12.2f %12.2f\n", r.DS, r.YHat, r.YHatLower, r.YHatUpper, r.Trend)
	}
}

func (p printer) news(n *finvestigator.NewsResponse) {
	if p.raw(n) {
		return
	}
	fmt.Printf("%s (%d entries)\n\n", n.FeedURL, len(n.Entries))
	for _, e := range n.Entries {
		fmt.Println(e.Title)
		if e.Published != "" {
			fmt.Printf("  %s\n", e.Published)
		}
		if text := strings.TrimSpace(e.Text); text != "" {
			fmt.Printf("  %s\n", text)
		}
		fmt.Printf("  %s\n\n", e.Link)
	}
}

func (p printer) runs(runs []finvestigator.Run) {
	if p.raw(runs) {
		return
	}
	fmt.Printf("%-6s %-12s %5s %8s %9s %12s %12s  %s\n", "ID", "Symbol", "Years", "History", "Forecast", "Last close", "Final yhat", "Created")
	for _, r := range runs {
		fmt.Printf("%-6d %-12s %5d %8d %9d %12.2f %12.2f  %s\n",
			r.ID, r.Symbol, r.Years, r.HistoryRows, r.ForecastRows, r.LastClose, r.FinalYHat, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (p printer) symbols(symbols []string) {
	if p.raw(finvestigator.SymbolsResponse{Symbols: symbols}) {
		return
	}
	for _, s := range symbols {
		fmt.Println(s)
	}
}

func (p printer) removed(symbol string, n int) {
	if p.raw(finvestigator.CacheResponse{Symbol: symbol, Removed: n}) {
		return
	}
	if symbol == "" {
		fmt.Printf("removed %d cached series\n", n)
		return
	}
	fmt.Printf("removed %d cached series for %s\n", n, symbol)
}
