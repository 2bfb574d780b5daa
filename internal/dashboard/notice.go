package dashboard

import (
	"errors"
	"fmt"
)

// User-facing messages.
const (
	MsgTickerHelp   = "Please visit https://finance.yahoo.com/ for ticker symbols."
	MsgNoData       = "No data available for the specified company within the specified date range."
	MsgLoadError    = "Error occurred while loading data: %v"
	MsgProfileError = "Error occurred while retrieving company information: %v"
	MsgForecastErr  = "Error occurred while forecasting: %v"
	MsgTooFewRows   = "Not enough data to fit a forecast."
	MsgNoFeedURL    = "Please provide an RSS feed URL."
	MsgNewsError    = "Error occurred while fetching news: %v"
	MsgYearsRange   = "Years of prediction must be between 1 and 6."
)

// Level is the severity a notice is displayed with.
type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kind classifies why a render halted.
type Kind int

const (
	KindInput    Kind = iota // missing or invalid user input
	KindNoData               // upstream answered with nothing
	KindUpstream             // upstream or dependency fault
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNoData:
		return "no_data"
	default:
		return "upstream"
	}
}

// Notice is a message that halts the current render. It is returned as an
// error by Controller methods.
type Notice struct {
	Kind    Kind
	Message string
	Err     error
}

func (n *Notice) Error() string { return n.Message }

func (n *Notice) Unwrap() error { return n.Err }

// Level returns the display severity: warnings for input and missing data,
// errors for faults.
func (n *Notice) Level() Level {
	if n.Kind == KindUpstream {
		return LevelError
	}
	return LevelWarning
}

// AsNotice extracts a Notice from err. Any other non-nil error is wrapped as
// an upstream fault so callers always have a message to show.
func AsNotice(err error) *Notice {
	if err == nil {
		return nil
	}
	var n *Notice
	if errors.As(err, &n) {
		return n
	}
	return &Notice{Kind: KindUpstream, Message: err.Error(), Err: err}
}

func warn(kind Kind, msg string) *Notice {
	return &Notice{Kind: kind, Message: msg}
}

func fault(format string, err error) *Notice {
	return &Notice{Kind: KindUpstream, Message: fmt.Sprintf(format, err), Err: err}
}
