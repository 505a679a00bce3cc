// Package health exposes the standard grpc.health.v1 service for the hub,
// together with server reflection, on a dedicated gRPC listener.
package health
