package reclaimv1

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

type fakeServer struct {
	UnimplementedReclaimDaemonServer
}

func (fakeServer) Triage(_ context.Context, req *TriageRequest) (*TriageResponse, error) {
	if req.Path == "/missing" {
		return nil, ToStatus(types.NewOpError(types.KindInvalidPath, req.Path, errors.New("no such directory")))
	}
	return FromTriage(&types.TriageResult{
		Root:     req.Path,
		AutoSafe: []types.FileItem{{Path: req.Path + "/a.tmp", Verdict: types.AutoSafe, Reason: "disposable: *.tmp"}},
		NeedsReview: []types.FileItem{
			{Path: req.Path + "/notes.txt", Verdict: types.NeedsReview},
		},
	}), nil
}

func (fakeServer) Clean(_ context.Context, req *CleanRequest) (*ActionResponse, error) {
	return FromResult(engine.Result{Success: true, Message: "nothing to clean"}), nil
}

func (fakeServer) Watch(req *WatchRequest, stream grpc.ServerStreamingServer[ChangeEvent]) error {
	for _, name := range []string{"a", "b"} {
		if err := stream.Send(&ChangeEvent{Type: "created", Path: req.Root + "/" + name}); err != nil {
			return err
		}
	}
	return nil
}

func dial(t *testing.T) ReclaimDaemonClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterReclaimDaemonServer(srv, fakeServer{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewReclaimDaemonClient(conn)
}

func TestService_Unary(t *testing.T) {
	t.Parallel()

	c := dial(t)
	ctx := context.Background()

	resp, err := c.Triage(ctx, &TriageRequest{Path: "/r"})
	require.NoError(t, err)
	result := resp.ToTriage()
	require.Len(t, result.AutoSafe, 1)
	assert.Equal(t, types.AutoSafe, result.AutoSafe[0].Verdict)
	assert.Equal(t, "disposable: *.tmp", result.AutoSafe[0].Reason)
	require.Len(t, result.NeedsReview, 1)
	assert.Equal(t, types.NeedsReview, result.NeedsReview[0].Verdict)
	assert.Empty(t, result.NeedsReview[0].Reason)

	action, err := c.Clean(ctx, &CleanRequest{Path: "/r"})
	require.NoError(t, err)
	assert.True(t, action.Success)
	assert.Nil(t, action.ManifestID)
}

func TestService_ErrorKindRoundTrip(t *testing.T) {
	t.Parallel()

	c := dial(t)
	_, err := c.Triage(context.Background(), &TriageRequest{Path: "/missing"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = FromStatus(err)
	assert.ErrorIs(t, err, types.ErrInvalidPath)

	var opErr *types.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "/missing", opErr.Path)
	assert.Contains(t, opErr.Error(), "no such directory")
}

func TestService_Unimplemented(t *testing.T) {
	t.Parallel()

	c := dial(t)
	_, err := c.List(context.Background(), &ListRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestService_Watch(t *testing.T) {
	t.Parallel()

	c := dial(t)
	stream, err := c.Watch(context.Background(), &WatchRequest{Root: "/r"})
	require.NoError(t, err)

	var paths []string
	for {
		ev, err := stream.Recv()
		if err != nil {
			break
		}
		paths = append(paths, ev.Path)
	}
	assert.Equal(t, []string{"/r/a", "/r/b"}, paths)
}

func TestToStatus(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ToStatus(nil))
	assert.Equal(t, codes.Internal, status.Code(ToStatus(errors.New("boom"))))
	assert.Equal(t, codes.Canceled, status.Code(ToStatus(context.Canceled)))
	assert.Equal(t, codes.Aborted, status.Code(ToStatus(types.NewOpError(types.KindOperationInProgress, "/r", nil))))
	assert.Equal(t, codes.FailedPrecondition, status.Code(ToStatus(types.ErrNoManifests)))

	// Status errors pass through unchanged.
	st := status.Error(codes.Unavailable, "down")
	assert.Equal(t, st, ToStatus(st))
	assert.Equal(t, st, FromStatus(st))

	plain := errors.New("plain")
	assert.Equal(t, plain, FromStatus(plain))
}

func TestResultConversion(t *testing.T) {
	t.Parallel()

	in := engine.Result{Success: true, Message: "restored 1 files (1 B)", ManifestID: "id", Restored: 1, Bytes: 1}
	assert.Equal(t, in, FromResult(in).ToResult())

	empty := FromResult(engine.Result{Message: "x"})
	assert.Nil(t, empty.ManifestID)
	assert.Equal(t, "", empty.ToResult().ManifestID)
}
