package reclaimv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "reclaim.v1.ReclaimDaemon"

// Full method names.
const (
	ReclaimDaemon_Triage_FullMethodName    = "/" + ServiceName + "/Triage"
	ReclaimDaemon_Clean_FullMethodName     = "/" + ServiceName + "/Clean"
	ReclaimDaemon_List_FullMethodName      = "/" + ServiceName + "/List"
	ReclaimDaemon_Restore_FullMethodName   = "/" + ServiceName + "/Restore"
	ReclaimDaemon_Show_FullMethodName      = "/" + ServiceName + "/Show"
	ReclaimDaemon_Verify_FullMethodName    = "/" + ServiceName + "/Verify"
	ReclaimDaemon_Summarize_FullMethodName = "/" + ServiceName + "/Summarize"
	ReclaimDaemon_Status_FullMethodName    = "/" + ServiceName + "/Status"
	ReclaimDaemon_Shutdown_FullMethodName  = "/" + ServiceName + "/Shutdown"
	ReclaimDaemon_Watch_FullMethodName     = "/" + ServiceName + "/Watch"
)

// ReclaimDaemonServer is the server API for the ReclaimDaemon service.
// Implementations must embed UnimplementedReclaimDaemonServer.
type ReclaimDaemonServer interface {
	Triage(context.Context, *TriageRequest) (*TriageResponse, error)
	Clean(context.Context, *CleanRequest) (*ActionResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Restore(context.Context, *RestoreRequest) (*ActionResponse, error)
	Show(context.Context, *ShowRequest) (*ShowResponse, error)
	Verify(context.Context, *VerifyRequest) (*VerifyResponse, error)
	Summarize(context.Context, *SummarizeRequest) (*SummarizeResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[ChangeEvent]) error
	mustEmbedUnimplementedReclaimDaemonServer()
}

// UnimplementedReclaimDaemonServer returns Unimplemented for every method.
type UnimplementedReclaimDaemonServer struct{}

func (UnimplementedReclaimDaemonServer) Triage(context.Context, *TriageRequest) (*TriageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Triage not implemented")
}
func (UnimplementedReclaimDaemonServer) Clean(context.Context, *CleanRequest) (*ActionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Clean not implemented")
}
func (UnimplementedReclaimDaemonServer) List(context.Context, *ListRequest) (*ListResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedReclaimDaemonServer) Restore(context.Context, *RestoreRequest) (*ActionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Restore not implemented")
}
func (UnimplementedReclaimDaemonServer) Show(context.Context, *ShowRequest) (*ShowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Show not implemented")
}
func (UnimplementedReclaimDaemonServer) Verify(context.Context, *VerifyRequest) (*VerifyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}
func (UnimplementedReclaimDaemonServer) Summarize(context.Context, *SummarizeRequest) (*SummarizeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Summarize not implemented")
}
func (UnimplementedReclaimDaemonServer) Status(context.Context, *StatusRequest) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedReclaimDaemonServer) Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Shutdown not implemented")
}
func (UnimplementedReclaimDaemonServer) Watch(*WatchRequest, grpc.ServerStreamingServer[ChangeEvent]) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}
func (UnimplementedReclaimDaemonServer) mustEmbedUnimplementedReclaimDaemonServer() {}

// RegisterReclaimDaemonServer registers srv on s.
func RegisterReclaimDaemonServer(s grpc.ServiceRegistrar, srv ReclaimDaemonServer) {
	s.RegisterService(&ReclaimDaemon_ServiceDesc, srv)
}

// unary builds the method descriptor for one unary RPC.
func unary[Req, Resp any](name string, call func(ReclaimDaemonServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReclaimDaemonServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReclaimDaemonServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ReclaimDaemonServer).Watch(in, &grpc.GenericServerStream[WatchRequest, ChangeEvent]{ServerStream: stream})
}

// ReclaimDaemon_ServiceDesc is the grpc.ServiceDesc for the ReclaimDaemon service.
var ReclaimDaemon_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReclaimDaemonServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Triage", ReclaimDaemonServer.Triage),
		unary("Clean", ReclaimDaemonServer.Clean),
		unary("List", ReclaimDaemonServer.List),
		unary("Restore", ReclaimDaemonServer.Restore),
		unary("Show", ReclaimDaemonServer.Show),
		unary("Verify", ReclaimDaemonServer.Verify),
		unary("Summarize", ReclaimDaemonServer.Summarize),
		unary("Status", ReclaimDaemonServer.Status),
		unary("Shutdown", ReclaimDaemonServer.Shutdown),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "reclaim/v1/reclaim.proto",
}

// ReclaimDaemonClient is the client API for the ReclaimDaemon service.
type ReclaimDaemonClient interface {
	Triage(ctx context.Context, in *TriageRequest, opts ...grpc.CallOption) (*TriageResponse, error)
	Clean(ctx context.Context, in *CleanRequest, opts ...grpc.CallOption) (*ActionResponse, error)
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	Restore(ctx context.Context, in *RestoreRequest, opts ...grpc.CallOption) (*ActionResponse, error)
	Show(ctx context.Context, in *ShowRequest, opts ...grpc.CallOption) (*ShowResponse, error)
	Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error)
	Summarize(ctx context.Context, in *SummarizeRequest, opts ...grpc.CallOption) (*SummarizeResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChangeEvent], error)
}

type reclaimDaemonClient struct {
	cc grpc.ClientConnInterface
}

// NewReclaimDaemonClient returns a client over cc. Every call uses the
// JSON codec.
func NewReclaimDaemonClient(cc grpc.ClientConnInterface) ReclaimDaemonClient {
	return &reclaimDaemonClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reclaimDaemonClient) Triage(ctx context.Context, in *TriageRequest, opts ...grpc.CallOption) (*TriageResponse, error) {
	return invoke[TriageResponse](ctx, c.cc, ReclaimDaemon_Triage_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Clean(ctx context.Context, in *CleanRequest, opts ...grpc.CallOption) (*ActionResponse, error) {
	return invoke[ActionResponse](ctx, c.cc, ReclaimDaemon_Clean_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, ReclaimDaemon_List_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Restore(ctx context.Context, in *RestoreRequest, opts ...grpc.CallOption) (*ActionResponse, error) {
	return invoke[ActionResponse](ctx, c.cc, ReclaimDaemon_Restore_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Show(ctx context.Context, in *ShowRequest, opts ...grpc.CallOption) (*ShowResponse, error) {
	return invoke[ShowResponse](ctx, c.cc, ReclaimDaemon_Show_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error) {
	return invoke[VerifyResponse](ctx, c.cc, ReclaimDaemon_Verify_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Summarize(ctx context.Context, in *SummarizeRequest, opts ...grpc.CallOption) (*SummarizeResponse, error) {
	return invoke[SummarizeResponse](ctx, c.cc, ReclaimDaemon_Summarize_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, ReclaimDaemon_Status_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error) {
	return invoke[ShutdownResponse](ctx, c.cc, ReclaimDaemon_Shutdown_FullMethodName, in, opts)
}

func (c *reclaimDaemonClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChangeEvent], error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &ReclaimDaemon_ServiceDesc.Streams[0], ReclaimDaemon_Watch_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, ChangeEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
