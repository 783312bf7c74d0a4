// Package api serves the coordinator's node control surface as plain
// JSON over net/http (see DESIGN.md for why a gRPC/protobuf surface was
// ruled out). Server wires a single ServeMux to the rest of the
// coordinator's components — cluster state and consensus, the user
// directory, the container runtime and lifecycle engine, and the
// stats/log collectors — using the same mux-in-a-struct construction as
// pkg/metrics's health handlers.
//
// Routes:
//
//	GET  /v1/cluster                 cluster status, leader, quorum
//	GET  /v1/nodes                   cluster membership
//	POST /v1/nodes/join              join a node (validates a token if a
//	                                  TokenManager is configured)
//	GET|POST /v1/tokens              list/issue join tokens
//	GET|POST /v1/users               list/create VPN user accounts
//	GET|DELETE /v1/users/{id}        read/delete a user account
//	GET|POST /v1/containers          list/create containers
//	GET|DELETE /v1/containers/{id}   read/remove a container
//	POST /v1/containers/{id}/{start,stop,restart,pause,unpause}
//	POST /v1/bulk/{start,stop,restart,remove}
//	GET  /v1/stats/{id}[/history|/trends]
//	GET  /v1/logs/{id}
//	/metrics, /health, /ready, /live forward to pkg/metrics
package api
