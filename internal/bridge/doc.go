// Package bridge connects a coordinator goroutine with a compilation
// worker goroutine through message ports.
//
// Requests from the worker come in two flavors. Asynchronous requests
// (stylesheet transforms) carry a correlation id and may be in flight
// together; replies resolve exactly the continuation registered for their
// id. Synchronous requests (compiler option transforms, web worker
// bundling) are strictly one at a time: the worker resets a Signal, posts
// the request and blocks until the coordinator has posted the reply and
// notified the signal.
//
// The coordinator must reply exactly once to every synchronous request. A
// missing reply blocks the worker forever; there is no timeout.
package bridge
