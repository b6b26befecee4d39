package grpc

// proto.go defines the ScoringService server and client without generated
// protobuf code. Messages are plain structs carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fraudscore.v1.ScoringService"

const (
	methodScore          = "/" + ServiceName + "/Score"
	methodScoreBatch     = "/" + ServiceName + "/ScoreBatch"
	methodFetchLastBatch = "/" + ServiceName + "/FetchLastBatch"
)

// ScoringServiceServer is the server API for ScoringService.
type ScoringServiceServer interface {
	Score(context.Context, *ScoreRequest) (*ScoreResponse, error)
	ScoreBatch(context.Context, *ScoreBatchRequest) (*ScoreBatchResponse, error)
	FetchLastBatch(context.Context, *FetchLastBatchRequest) (*FetchLastBatchResponse, error)
	mustEmbedUnimplementedScoringServiceServer()
}

// UnimplementedScoringServiceServer provides forward-compatible default implementations.
type UnimplementedScoringServiceServer struct{}

func (UnimplementedScoringServiceServer) Score(context.Context, *ScoreRequest) (*ScoreResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Score not implemented")
}
func (UnimplementedScoringServiceServer) ScoreBatch(context.Context, *ScoreBatchRequest) (*ScoreBatchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ScoreBatch not implemented")
}
func (UnimplementedScoringServiceServer) FetchLastBatch(context.Context, *FetchLastBatchRequest) (*FetchLastBatchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FetchLastBatch not implemented")
}
func (UnimplementedScoringServiceServer) mustEmbedUnimplementedScoringServiceServer() {}

// RegisterScoringServiceServer registers the ScoringServiceServer with the gRPC server.
func RegisterScoringServiceServer(s grpclib.ServiceRegistrar, srv ScoringServiceServer) {
	s.RegisterService(&_ScoringService_serviceDesc, srv)
}

var _ScoringService_serviceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoringServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Score", Handler: _ScoringService_Score_Handler},
		{MethodName: "ScoreBatch", Handler: _ScoringService_ScoreBatch_Handler},
		{MethodName: "FetchLastBatch", Handler: _ScoringService_FetchLastBatch_Handler},
	},
	Streams: []grpclib.StreamDesc{},
}

func _ScoringService_Score_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(ScoreRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServiceServer).Score(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: methodScore}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScoringServiceServer).Score(ctx, req.(*ScoreRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ScoringService_ScoreBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(ScoreBatchRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServiceServer).ScoreBatch(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: methodScoreBatch}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScoringServiceServer).ScoreBatch(ctx, req.(*ScoreBatchRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ScoringService_FetchLastBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(FetchLastBatchRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServiceServer).FetchLastBatch(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: methodFetchLastBatch}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScoringServiceServer).FetchLastBatch(ctx, req.(*FetchLastBatchRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// ScoringServiceClient is the client API for ScoringService.
type ScoringServiceClient interface {
	Score(ctx context.Context, in *ScoreRequest, opts ...grpclib.CallOption) (*ScoreResponse, error)
	ScoreBatch(ctx context.Context, in *ScoreBatchRequest, opts ...grpclib.CallOption) (*ScoreBatchResponse, error)
	FetchLastBatch(ctx context.Context, in *FetchLastBatchRequest, opts ...grpclib.CallOption) (*FetchLastBatchResponse, error)
}

type scoringServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewScoringServiceClient returns a client that forces the JSON codec on every call.
func NewScoringServiceClient(cc grpclib.ClientConnInterface) ScoringServiceClient {
	return &scoringServiceClient{cc: cc}
}

func (c *scoringServiceClient) Score(ctx context.Context, in *ScoreRequest, opts ...grpclib.CallOption) (*ScoreResponse, error) {
	out := new(ScoreResponse)
	if err := c.cc.Invoke(ctx, methodScore, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *scoringServiceClient) ScoreBatch(ctx context.Context, in *ScoreBatchRequest, opts ...grpclib.CallOption) (*ScoreBatchResponse, error) {
	out := new(ScoreBatchResponse)
	if err := c.cc.Invoke(ctx, methodScoreBatch, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *scoringServiceClient) FetchLastBatch(ctx context.Context, in *FetchLastBatchRequest, opts ...grpclib.CallOption) (*FetchLastBatchResponse, error) {
	out := new(FetchLastBatchResponse)
	if err := c.cc.Invoke(ctx, methodFetchLastBatch, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpclib.CallOption) []grpclib.CallOption {
	return append([]grpclib.CallOption{grpclib.CallContentSubtype(JSONCodecName)}, opts...)
}
