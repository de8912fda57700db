package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/session"
	"github.com/blazerhq/blazer/internal/v1/store"
	"github.com/blazerhq/blazer/internal/v1/types"
)

const waitTimeout = 2 * time.Second

// testServer bundles the lobby service with its backing store and registry so
// tests can assert on all three.
type testServer struct {
	srv      *Server
	store    *store.Store
	registry *session.Registry
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	kv, err := store.NewClient(store.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	st := store.New(kv)
	registry := session.NewRegistry()

	srv, err := NewServer(context.Background(), st, registry, cfg)
	require.NoError(t, err)

	return &testServer{srv: srv, store: st, registry: registry}
}

func defaultConfig() Config {
	return Config{RoomCapacity: 2, CommonRoomCapacity: 2}
}

// mustCreateUser seeds a user record directly in the store.
func (ts *testServer) mustCreateUser(t *testing.T, name string) types.User {
	t.Helper()
	user, err := ts.store.CreateUser(context.Background(), types.NewUser(name))
	require.NoError(t, err)
	return user
}

// mockStream implements pb.Lobby_RoomServiceServer and hands every sent
// response to the test through a channel.
type mockStream struct {
	ctx       context.Context
	responses chan *pb.RoomServiceResponse
}

func newMockStream(ctx context.Context) *mockStream {
	return &mockStream{
		ctx:       ctx,
		responses: make(chan *pb.RoomServiceResponse, 16),
	}
}

func (s *mockStream) Send(resp *pb.RoomServiceResponse) error {
	s.responses <- resp
	return nil
}

func (s *mockStream) Context() context.Context     { return s.ctx }
func (s *mockStream) SetHeader(metadata.MD) error  { return nil }
func (s *mockStream) SendHeader(metadata.MD) error { return nil }
func (s *mockStream) SetTrailer(metadata.MD)       {}
func (s *mockStream) SendMsg(any) error            { return nil }
func (s *mockStream) RecvMsg(any) error            { return nil }

// startStream runs RoomService in the background and returns the channel its
// result lands on.
func startStream(srv *Server, req *pb.RoomServiceRequest, stream *mockStream) chan error {
	done := make(chan error, 1)
	go func() {
		done <- srv.RoomService(req, stream)
	}()
	return done
}

func waitResponse(t *testing.T, stream *mockStream) *pb.RoomServiceResponse {
	t.Helper()
	select {
	case resp := <-stream.responses:
		return resp
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for stream response")
		return nil
	}
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for stream to finish")
		return nil
	}
}

func strPtr(s string) *string { return &s }
