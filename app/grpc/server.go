package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type accessTokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*dto.PublicUser, error)
}

type AuthServer struct {
	authenticator accessTokenAuthenticator
	metrics       *metrics.Metrics
}

func NewAuthServer(authenticator accessTokenAuthenticator, m *metrics.Metrics) *AuthServer {
	return &AuthServer{authenticator: authenticator, metrics: m}
}

// ValidateToken runs the same checks as the HTTP bearer gate. A rejected token
// is a normal response with valid=false; only broken requests and storage
// failures are gRPC errors.
func (s *AuthServer) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	token := strings.TrimSpace(req.GetValue())
	if token == "" {
		logrus.Debug("Validate token validation failed (grpc)")
		return nil, status.Error(codes.InvalidArgument, "access token is required")
	}

	user, err := s.authenticator.Authenticate(ctx, token)
	if err != nil {
		var appErr *service.Error
		if errors.As(err, &appErr) && appErr.Kind == service.KindAuthentication {
			logrus.WithField("reason", appErr.Message).Debug("Validate token failed (grpc)")
			s.metrics.ObserveAuthEvent("validate_token", "rejected")
			return structpb.NewStruct(map[string]any{
				"valid":  false,
				"reason": appErr.Message,
			})
		}
		logrus.WithError(err).Error("Validate token failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.WithField("user_id", user.ID).Debug("Validate token succeeded (grpc)")
	s.metrics.ObserveAuthEvent("validate_token", "success")
	return structpb.NewStruct(map[string]any{
		"valid":       true,
		"user_id":     user.ID,
		"email":       user.Email,
		"is_verified": user.IsVerified,
	})
}
