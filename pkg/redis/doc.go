// Package redis connects to Redis with go-redis and exposes a health probe.
//
// The service uses Redis for shared sessions and for broadcasting
// organization cache invalidations between replicas.
package redis
