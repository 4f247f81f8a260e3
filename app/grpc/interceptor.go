package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnaryInterceptor logs every call with its status code and turns a
// handler panic into codes.Internal.
func LoggingUnaryInterceptor() gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (resp any, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"method": info.FullMethod,
					"panic":  r,
				}).Error("gRPC handler panicked")
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}

			entry := logrus.WithFields(logrus.Fields{
				"method":   info.FullMethod,
				"code":     status.Code(err).String(),
				"duration": time.Since(start).String(),
			})
			if status.Code(err) == codes.Internal {
				entry.Warn("gRPC request failed")
				return
			}
			entry.Info("gRPC request handled")
		}()

		return handler(ctx, req)
	}
}
