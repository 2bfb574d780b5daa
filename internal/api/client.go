package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"finvestigator/internal/dashboard"
	"finvestigator/internal/domain"
	"finvestigator/internal/httpapi"
	"finvestigator/pkg/finvestigator"
)

var _ dashboard.Service = (*Client)(nil)

// Client implements dashboard.Service against a remote finvestigator.Dashboard
// gRPC server. Notices come back as *dashboard.Notice errors.
type Client struct {
	conn grpc.ClientConnInterface
}

// Dial connects to the gRPC server at addr.
func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req any, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, reply); err != nil {
		return statusNotice(err)
	}
	return fromStruct(reply, out)
}

func (c *Client) Home(ctx context.Context, req dashboard.HomeRequest) (*dashboard.HomeView, error) {
	var resp finvestigator.HomeResponse
	if err := c.invoke(ctx, "Home", homeRequest{Ticker: req.Ticker, Years: req.Years}, &resp); err != nil {
		return nil, err
	}
	return httpapi.DecodeHome(resp)
}

func (c *Client) News(ctx context.Context) (*dashboard.NewsView, error) {
	var resp finvestigator.NewsResponse
	if err := c.invoke(ctx, "News", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return httpapi.DecodeNews(resp), nil
}

func (c *Client) Disclaimer(ctx context.Context) (*dashboard.DisclaimerView, error) {
	var resp finvestigator.DisclaimerResponse
	if err := c.invoke(ctx, "Disclaimer", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return httpapi.DecodeDisclaimer(resp), nil
}

func (c *Client) Recent(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	var resp finvestigator.RecentResponse
	if err := c.invoke(ctx, "Recent", recentRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return httpapi.DecodeRuns(resp), nil
}
