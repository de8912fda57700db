package lobbypb

import (
	"context"

	"google.golang.org/grpc"
)

const (
	Lobby_Ping_FullMethodName        = "/blazer.v1.Lobby/Ping"
	Lobby_RoomService_FullMethodName = "/blazer.v1.Lobby/RoomService"
)

// LobbyClient is the client API for the Lobby service.
type LobbyClient interface {
	// Ping recognizes an existing user id or issues a fresh identity.
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	// RoomService opens a membership event stream for a create/join request.
	RoomService(ctx context.Context, in *RoomServiceRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[RoomServiceResponse], error)
}

type lobbyClient struct {
	cc grpc.ClientConnInterface
}

func NewLobbyClient(cc grpc.ClientConnInterface) LobbyClient {
	return &lobbyClient{cc}
}

func (c *lobbyClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(PingResponse)
	err := c.cc.Invoke(ctx, Lobby_Ping_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lobbyClient) RoomService(ctx context.Context, in *RoomServiceRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[RoomServiceResponse], error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &Lobby_ServiceDesc.Streams[0], Lobby_RoomService_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[RoomServiceRequest, RoomServiceResponse]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Lobby_RoomServiceServer is the server-side handle for the RoomService stream.
type Lobby_RoomServiceServer = grpc.ServerStreamingServer[RoomServiceResponse]

// LobbyServer is the server API for the Lobby service.
type LobbyServer interface {
	Ping(ctx context.Context, in *PingRequest) (*PingResponse, error)
	RoomService(in *RoomServiceRequest, stream Lobby_RoomServiceServer) error
}

func RegisterLobbyServer(s grpc.ServiceRegistrar, srv LobbyServer) {
	s.RegisterService(&Lobby_ServiceDesc, srv)
}

func _Lobby_Ping_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Lobby_Ping_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LobbyServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Lobby_RoomService_Handler(srv any, stream grpc.ServerStream) error {
	m := new(RoomServiceRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(LobbyServer).RoomService(m, &grpc.GenericServerStream[RoomServiceRequest, RoomServiceResponse]{ServerStream: stream})
}

// Lobby_ServiceDesc is the grpc.ServiceDesc for the Lobby service.
var Lobby_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "blazer.v1.Lobby",
	HandlerType: (*LobbyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler:    _Lobby_Ping_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "RoomService",
			Handler:       _Lobby_RoomService_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "lobby.proto",
}
