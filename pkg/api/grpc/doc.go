// Package grpc serves the standard gRPC health checking protocol so
// orchestrators can probe the engine over gRPC.
package grpc
