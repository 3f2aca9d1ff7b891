package grpcsink

import (
	"net"

	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/proto"
	"google.golang.org/protobuf/types/known/emptypb"
)

// serviceName is the gRPC service subscribers connect to.
const serviceName = "wildfire.events.v1.EventService"

// Server exposes a PublishSink's broadcast stream over gRPC: a single
// server-streaming Subscribe RPC that replays every event broadcast from
// the moment a client connects. There is no generated stub for this
// service (no .proto is checked into this module), so the service is
// registered directly against a hand-written grpc.ServiceDesc — the same
// mechanism generated code uses under the hood, just without the
// generated wrapper.
type Server struct {
	sink *PublishSink
	srv  *grpc.Server
}

// NewServer wraps sink with a gRPC server exposing its event stream.
func NewServer(sink *PublishSink) *Server {
	s := &Server{sink: sink}
	s.srv = grpc.NewServer()
	s.srv.RegisterService(&serviceDesc, s)
	return s
}

// Serve blocks, accepting connections on lis until it errors or the
// server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Stop gracefully shuts down the gRPC server, letting in-flight streams
// drain before closing their connections.
func (s *Server) Stop() {
	s.srv.GracefulStop()
}

func subscribeStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	s := srv.(*Server)

	var req emptypb.Empty
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	ch := s.sink.subscribe()
	defer s.sink.unsubscribe(ch)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-ch:
			if err := stream.SendMsg(evt); err != nil {
				return err
			}
		}
	}
}

// eventService is the interface type grpc.Server's RegisterService checks
// the registered implementation against. Streaming methods are dispatched
// through the raw handler functions in ServiceDesc.Streams rather than
// through Go method calls, so this interface carries no methods of its
// own; it only needs to name a type *Server satisfies.
type eventService interface{}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*eventService)(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeStreamHandler, ServerStreams: true},
	},
	Metadata: "wildfire/events.proto",
}
