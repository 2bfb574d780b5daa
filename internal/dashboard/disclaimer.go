package dashboard

import (
	"bytes"
	"context"
	"sync"

	"github.com/yuin/goldmark"
)

const disclaimerTitle = "Disclaimer ⚠️"

const disclaimerMarkdown = `## Disclaimer ⚠️

The information provided here is for educational and informational purposes
only. It should not be considered as financial advice. Invest in the stock
market at your own risk. Always do your own research or consult with a
qualified financial advisor before making any investment decisions.

Forecasts are produced by a statistical model fitted to historical closing
prices. Past performance does not guarantee future results.
`

var (
	disclaimerOnce sync.Once
	disclaimerHTML string
	disclaimerErr  error
)

func renderDisclaimer() (string, error) {
	disclaimerOnce.Do(func() {
		var buf bytes.Buffer
		disclaimerErr = goldmark.Convert([]byte(disclaimerMarkdown), &buf)
		disclaimerHTML = buf.String()
	})
	return disclaimerHTML, disclaimerErr
}

// Disclaimer returns the static disclaimer page.
func (c *Controller) Disclaimer(_ context.Context) (*DisclaimerView, error) {
	html, err := renderDisclaimer()
	if err != nil {
		return nil, fault("Error occurred while rendering disclaimer: %v", err)
	}
	return &DisclaimerView{
		Title:    disclaimerTitle,
		Markdown: disclaimerMarkdown,
		HTML:     html,
	}, nil
}
