// Package grpc provides gRPC server interceptors for bearer token
// authentication.
//
// The unary and stream interceptors read the token from the "authorization"
// metadata entry, check it with core.Core and store the verified identity in
// the call context. Every failure is returned as codes.Unauthenticated with
// the message "unauthenticated".
//
// # Basic Usage
//
//	resolver, _ := jwks.NewResolver(jwks.NewStore(), fetcher)
//	v, _ := validator.New(
//	    validator.WithKeyResolver(resolver),
//	    validator.WithIssuer("https://auth.example.com"),
//	)
//
//	interceptor, err := jwtgrpc.New(
//	    jwtgrpc.WithValidator(v),
//	    jwtgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// # Identity Retrieval
//
//	func (s *server) GetUser(ctx context.Context, req *pb.GetUserRequest) (*pb.User, error) {
//	    identity, ok := jwtgrpc.Identity(ctx)
//	    if !ok {
//	        return nil, status.Error(codes.Internal, "missing identity")
//	    }
//	    return &pb.User{ID: identity.Subject}, nil
//	}
package grpc
