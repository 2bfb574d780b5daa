package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"finvestigator/internal/api"
	"finvestigator/internal/app"
	"finvestigator/internal/config"
	"finvestigator/internal/dashboard"
	"finvestigator/internal/util"
)

// Styles.
var (
	ribbonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("27"))
	menuStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	menuActive    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sparkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	forecastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

const requestTimeout = 2 * time.Minute

// Messages.
type homeLoadedMsg struct {
	view *dashboard.HomeView
	err  error
}

type newsLoadedMsg struct {
	view *dashboard.NewsView
	err  error
}

type disclaimerLoadedMsg struct {
	view *dashboard.DisclaimerView
	err  error
}

// Model.
type model struct {
	svc    dashboard.Service
	logger *slog.Logger

	page     dashboard.Page
	input    textinput.Model
	years    int
	loading  bool
	notice   *dashboard.Notice
	home     *dashboard.HomeView
	news     *dashboard.NewsView
	disclaim *dashboard.DisclaimerView

	viewport      viewport.Model
	ready         bool
	width, height int
}

func initialModel(svc dashboard.Service, logger *slog.Logger, ticker string, years int) model {
	ti := textinput.New()
	ti.Placeholder = "e.g. TCS.NS, RELIANCE.NS"
	ti.Prompt = "Ticker: "
	ti.CharLimit = 20
	ti.SetValue(ticker)
	ti.Focus()

	if years < 1 || years > 6 {
		years = 1
	}
	return model{svc: svc, logger: logger, input: ti, years: years, page: dashboard.PageHome}
}

func (m model) Init() tea.Cmd {
	if strings.TrimSpace(m.input.Value()) != "" {
		return tea.Batch(textinput.Blink, m.loadHome())
	}
	return textinput.Blink
}

func (m model) loadHome() tea.Cmd {
	svc, req := m.svc, dashboard.HomeRequest{Ticker: m.input.Value(), Years: m.years}
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		start := time.Now()
		view, err := svc.Home(ctx, req)
		logger.Info("home loaded", "ticker", req.Ticker, "years", req.Years, "elapsed", time.Since(start).Round(time.Millisecond), "error", err)
		return homeLoadedMsg{view: view, err: err}
	}
}

func (m model) loadNews() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		view, err := svc.News(ctx)
		return newsLoadedMsg{view: view, err: err}
	}
}

func (m model) loadDisclaimer() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		view, err := svc.Disclaimer(context.Background())
		return disclaimerLoadedMsg{view: view, err: err}
	}
}

// selectPage switches pages. Nothing carries over between pages.
func (m *model) selectPage(p dashboard.Page) tea.Cmd {
	m.page = p
	m.notice = nil
	m.home, m.news, m.disclaim = nil, nil, nil
	m.loading = true
	switch p {
	case dashboard.PageNews:
		m.input.Blur()
		return m.loadNews()
	case dashboard.PageDisclaimer:
		m.input.Blur()
		return m.loadDisclaimer()
	default:
		m.input.Focus()
		return m.loadHome()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "q":
			if !m.input.Focused() {
				return m, tea.Quit
			}
		case "tab":
			next := dashboard.Pages[(int(m.page)+1)%len(dashboard.Pages)]
			cmd = m.selectPage(next)
			m.refresh()
			return m, cmd
		case "f1", "f2", "f3":
			cmd = m.selectPage(dashboard.Pages[int(msg.String()[1]-'1')])
			m.refresh()
			return m, cmd
		case "enter":
			if m.page == dashboard.PageHome {
				m.notice = nil
				m.loading = true
				m.refresh()
				return m, m.loadHome()
			}
		case "]":
			if m.page == dashboard.PageHome && m.years < 6 {
				m.years++
				m.refresh()
			}
			return m, nil
		case "[":
			if m.page == dashboard.PageHome && m.years > 1 {
				m.years--
				m.refresh()
			}
			return m, nil
		case "pgup", "pgdown", "up", "down":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.page == dashboard.PageHome {
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - headerHeight - 1
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case homeLoadedMsg:
		if m.page != dashboard.PageHome {
			return m, nil
		}
		m.loading = false
		m.home, m.notice = msg.view, dashboard.AsNotice(msg.err)
		m.refresh()
		m.viewport.GotoTop()
		return m, nil

	case newsLoadedMsg:
		if m.page != dashboard.PageNews {
			return m, nil
		}
		m.loading = false
		m.news, m.notice = msg.view, dashboard.AsNotice(msg.err)
		m.refresh()
		m.viewport.GotoTop()
		return m, nil

	case disclaimerLoadedMsg:
		if m.page != dashboard.PageDisclaimer {
			return m, nil
		}
		m.loading = false
		m.disclaim, m.notice = msg.view, dashboard.AsNotice(msg.err)
		m.refresh()
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

const headerHeight = 3

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	ribbon := ribbonStyle.Render(padOrTrunc(" 📈 Stock Forecast", m.width))

	var menu []string
	for i, p := range dashboard.Pages {
		label := fmt.Sprintf(" F%d %s %s ", i+1, p.Icon(), p.Label())
		if p == m.page {
			menu = append(menu, menuActive.Render(label))
		} else {
			menu = append(menu, menuStyle.Render(label))
		}
	}

	controls := ""
	if m.page == dashboard.PageHome {
		controls = fmt.Sprintf("%s    Years of prediction: %d  ([/])", m.input.View(), m.years)
	}

	footer := dimStyle.Render(padOrTrunc(" tab/F1-F3 page · enter forecast · ↑/↓ scroll · esc quit", m.width))
	return strings.Join([]string{ribbon, strings.Join(menu, " "), controls, m.viewport.View(), footer}, "\n")
}

func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return s
	}
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func main() {
	addr := flag.String("addr", "", "finvestigator gRPC address; empty runs the dashboard in-process")
	ticker := flag.String("ticker", "", "ticker to load on start")
	years := flag.Int("years", 1, "years of prediction (1-6)")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logPath := fmt.Sprintf("/tmp/finvestigator-tui-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	var svc dashboard.Service
	if *addr != "" {
		client, conn, err := api.Dial(*addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connecting: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		svc = client
		logger.Info("using remote dashboard", "addr", *addr)
	} else {
		a, err := app.New(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "initializing: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()
		svc = a.Controller
	}

	p := tea.NewProgram(
		initialModel(svc, logger, *ticker, *years),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
