package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "songcache.v1.SongService"

const (
	saveSongMethod          = "/" + ServiceName + "/SaveSong"
	searchSongByTitleMethod = "/" + ServiceName + "/SearchSongByTitle"
)

// SongServiceServer is the server API for the song service. Requests and
// responses use protobuf well-known types: a song travels as a Struct with
// string fields id, title, singer and text.
type SongServiceServer interface {
	SaveSong(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SearchSongByTitle(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterSongServiceServer registers srv on s.
func RegisterSongServiceServer(s grpc.ServiceRegistrar, srv SongServiceServer) {
	s.RegisterService(&songServiceDesc, srv)
}

var songServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SongServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SaveSong", Handler: saveSongHandler},
		{MethodName: "SearchSongByTitle", Handler: searchSongByTitleHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "songcache/v1/songs.proto",
}

func saveSongHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SongServiceServer).SaveSong(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: saveSongMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SongServiceServer).SaveSong(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func searchSongByTitleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SongServiceServer).SearchSongByTitle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: searchSongByTitleMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SongServiceServer).SearchSongByTitle(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
