/*
Package app contains the framework pieces that turn a set of handlers into a
running harvester.

Router maps message paths to handlers and decodes messages from their JSON
representation. Decorators wrap the router with logging and panic recovery.
Engine owns the store: it applies submitted messages and promise
resolutions one at a time, each in its own cache wrap, and hands the issued
promises over to a worker pool for execution.
*/
package app
