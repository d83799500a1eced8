package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oriys/songcache/internal/domain"
	"github.com/oriys/songcache/internal/logging"
	"github.com/oriys/songcache/internal/metrics"
	"github.com/oriys/songcache/internal/songs"
)

// Server implements the songcache gRPC service
type Server struct {
	songs      *songs.Service
	metrics    *metrics.Metrics
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
}

// NewServer creates a new gRPC server. A nil m records into metrics.Global().
func NewServer(svc *songs.Service, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.Global()
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			tracingInterceptor,
			loggingInterceptor,
			errorHandlingInterceptor,
		),
	)

	s := &Server{
		songs:      svc,
		metrics:    m,
		grpcServer: grpcServer,
		health:     health.NewServer(),
	}
	RegisterSongServiceServer(grpcServer, s)

	// Register health service
	grpc_health_v1.RegisterHealthServer(grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return s
}

// Start starts the gRPC server on the given address
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.Serve(lis)
	logging.Op().Info("gRPC server started", "addr", lis.Addr().String())
	return nil
}

// Serve serves on an existing listener in the background.
func (s *Server) Serve(lis net.Listener) {
	s.listener = lis
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logging.Op().Error("gRPC server error", "error", err)
		}
	}()
}

// Stop gracefully stops the gRPC server
func (s *Server) Stop() {
	if s.grpcServer != nil {
		logging.Op().Info("stopping gRPC server")
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
}

// SaveSong stores a song given as a Struct with title, singer and text.
func (s *Server) SaveSong(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	title := stringField(req, "title")
	singer := stringField(req, "singer")
	text := stringField(req, "text")

	if err := domain.ValidateSong(title, singer, text); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	err := s.songs.Save(ctx, title, singer, text)
	s.metrics.RecordSave(time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "save song: %v", err)
	}
	return &emptypb.Empty{}, nil
}

// SearchSongByTitle looks a song up by title. Absent songs yield NotFound.
func (s *Server) SearchSongByTitle(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	title := req.GetValue()
	if err := domain.ValidateTitle(title); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	l := s.songs.Lookup(ctx, title)
	s.metrics.RecordLookup(metrics.LookupOutcome{
		Source:      l.Source.String(),
		DurationMs:  time.Since(start).Milliseconds(),
		CacheErr:    l.CacheErr != nil,
		StoreErr:    l.StoreErr != nil,
		PopulateErr: l.PopulateErr != nil,
	})
	if err := l.Err(); err != nil {
		logging.OpWithRequest(requestIDFromContext(ctx), "").Warn("song lookup degraded",
			"title", title,
			"source", l.Source.String(),
			"error", err,
		)
	}

	if !l.Found() {
		return nil, status.Error(codes.NotFound, "song not found")
	}
	return songToStruct(l.Song)
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func songToStruct(song *domain.Song) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]interface{}{
		"id":     song.ID,
		"title":  song.Title,
		"singer": song.Singer,
		"text":   song.Text,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode song: %v", err)
	}
	return out, nil
}

func structToSong(s *structpb.Struct) *domain.Song {
	return &domain.Song{
		ID:     stringField(s, "id"),
		Title:  stringField(s, "title"),
		Singer: stringField(s, "singer"),
		Text:   stringField(s, "text"),
	}
}
