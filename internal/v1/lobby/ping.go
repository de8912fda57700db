package lobby

import (
	"context"

	"go.uber.org/zap"

	pb "github.com/blazerhq/blazer/gen/proto"
	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/types"
)

// Ping recognizes an existing user id or mints a fresh identity with a
// random display name. A provided-but-unknown id fails with NotFound; the
// caller is expected to re-ping without an id to get a new identity.
func (s *Server) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {
	logging.Info(ctx, "Ping request", zap.String("userId", req.GetUserId()))

	var user types.User
	if req.UserId != nil {
		var err error
		user, err = s.store.FindUser(ctx, *req.UserId)
		if err != nil {
			return nil, s.fail(ctx, asNotFound(ctx, err, ErrUserNotFound(*req.UserId)))
		}
	} else {
		fresh := types.NewUser(randomDisplayName())

		var err error
		user, err = s.store.CreateUser(ctx, fresh)
		if err != nil {
			// Not retried here: the client re-pings and the next UUID wins.
			return nil, s.fail(ctx, asDuplicate(ctx, err, ErrUserAlreadyExists(fresh.UserID)))
		}
	}

	logging.Info(ctx, "Ping response",
		zap.String("userId", user.UserID), zap.String("userName", user.UserName))

	return &pb.PingResponse{
		UserId:   user.UserID,
		UserName: user.UserName,
	}, nil
}
