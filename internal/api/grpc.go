package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"finvestigator/internal/dashboard"
	"finvestigator/internal/httpapi"
)

const serviceName = "finvestigator.Dashboard"

// DashboardServer is the server API for the finvestigator.Dashboard
// service. Requests and replies carry the JSON API shapes as
// google.protobuf.Struct.
type DashboardServer interface {
	Home(context.Context, *structpb.Struct) (*structpb.Struct, error)
	News(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Disclaimer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recent(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Home", DashboardServer.Home),
		unaryMethod("News", DashboardServer.News),
		unaryMethod("Disclaimer", DashboardServer.Disclaimer),
		unaryMethod("Recent", DashboardServer.Recent),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finvestigator/dashboard.proto",
}

func unaryMethod(name string, call func(DashboardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DashboardServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DashboardServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterDashboardServer registers srv on the given gRPC server instance.
func RegisterDashboardServer(gs grpc.ServiceRegistrar, srv DashboardServer) {
	gs.RegisterService(&dashboardServiceDesc, srv)
}

// GRPCService implements DashboardServer over a dashboard.Service.
type GRPCService struct {
	svc dashboard.Service
}

// NewGRPCService creates a gRPC service backed by svc.
func NewGRPCService(svc dashboard.Service) *GRPCService {
	return &GRPCService{svc: svc}
}

// RegisterGRPC registers the service on the given gRPC server instance.
func (s *GRPCService) RegisterGRPC(gs *grpc.Server) {
	RegisterDashboardServer(gs, s)
}

type homeRequest struct {
	Ticker string `json:"ticker"`
	Years  int    `json:"years"`
}

type recentRequest struct {
	Limit int `json:"limit"`
}

func (s *GRPCService) Home(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req homeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	view, err := s.svc.Home(ctx, dashboard.HomeRequest{Ticker: req.Ticker, Years: req.Years})
	if err != nil {
		return nil, noticeStatus(err)
	}
	return toStruct(httpapi.EncodeHome(view))
}

func (s *GRPCService) News(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	view, err := s.svc.News(ctx)
	if err != nil {
		return nil, noticeStatus(err)
	}
	return toStruct(httpapi.EncodeNews(view))
}

func (s *GRPCService) Disclaimer(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	view, err := s.svc.Disclaimer(ctx)
	if err != nil {
		return nil, noticeStatus(err)
	}
	return toStruct(httpapi.EncodeDisclaimer(view))
}

func (s *GRPCService) Recent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req recentRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	runs, err := s.svc.Recent(ctx, req.Limit)
	if err != nil {
		return nil, noticeStatus(err)
	}
	return toStruct(httpapi.EncodeRuns(runs))
}

// noticeStatus maps a notice kind onto a gRPC status code.
func noticeStatus(err error) error {
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	n := dashboard.AsNotice(err)
	code := codes.Unavailable
	switch n.Kind {
	case dashboard.KindInput:
		code = codes.InvalidArgument
	case dashboard.KindNoData:
		code = codes.NotFound
	}
	return status.Error(code, n.Message)
}

// statusNotice is the inverse of noticeStatus.
func statusNotice(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	kind := dashboard.KindUpstream
	switch st.Code() {
	case codes.InvalidArgument:
		kind = dashboard.KindInput
	case codes.NotFound:
		kind = dashboard.KindNoData
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return &dashboard.Notice{Kind: kind, Message: st.Message(), Err: err}
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding struct: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding struct: %w", err)
	}
	return nil
}
