package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName         = "accounts.v1.AuthService"
	validateTokenMethod = "/" + ServiceName + "/ValidateToken"
)

// AuthServiceServer is served to other services. Requests and responses use
// well-known protobuf types so no generated code is needed on either side.
type AuthServiceServer interface {
	ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var AuthServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{
			MethodName: "ValidateToken",
			Handler:    validateTokenHandler,
		},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "accounts/v1/auth.proto",
}

func RegisterAuthServiceServer(registrar gogrpc.ServiceRegistrar, srv AuthServiceServer) {
	registrar.RegisterService(&AuthServiceDesc, srv)
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).ValidateToken(ctx, in)
	}

	info := &gogrpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: validateTokenMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthServiceServer).ValidateToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// TokenValidation is the decoded ValidateToken response.
type TokenValidation struct {
	Valid      bool
	UserID     string
	Email      string
	IsVerified bool
	Reason     string
}

type AuthClient struct {
	cc gogrpc.ClientConnInterface
}

func NewAuthClient(cc gogrpc.ClientConnInterface) *AuthClient {
	return &AuthClient{cc: cc}
}

func (c *AuthClient) ValidateToken(ctx context.Context, accessToken string, opts ...gogrpc.CallOption) (*TokenValidation, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, validateTokenMethod, wrapperspb.String(accessToken), out, opts...); err != nil {
		return nil, err
	}

	fields := out.GetFields()
	return &TokenValidation{
		Valid:      fields["valid"].GetBoolValue(),
		UserID:     fields["user_id"].GetStringValue(),
		Email:      fields["email"].GetStringValue(),
		IsVerified: fields["is_verified"].GetBoolValue(),
		Reason:     fields["reason"].GetStringValue(),
	}, nil
}
