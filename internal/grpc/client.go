package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oriys/songcache/internal/domain"
)

// Client talks to a songcache daemon over gRPC.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a plaintext client for addr.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// WithRequestID attaches a request ID that the server logs with the call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, requestIDKey, id)
}

// SaveSong saves a song.
func (c *Client) SaveSong(ctx context.Context, title, singer, text string) error {
	req, err := structpb.NewStruct(map[string]interface{}{
		"title":  title,
		"singer": singer,
		"text":   text,
	})
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, saveSongMethod, req, new(emptypb.Empty))
}

// SearchSongByTitle returns the song for title. A missing song is reported
// as (nil, false, nil).
func (c *Client) SearchSongByTitle(ctx context.Context, title string) (*domain.Song, bool, error) {
	out := new(structpb.Struct)
	err := c.conn.Invoke(ctx, searchSongByTitleMethod, wrapperspb.String(title), out)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return structToSong(out), true, nil
}
