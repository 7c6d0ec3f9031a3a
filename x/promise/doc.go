/*
Package promise implements asynchronous remote calls.

A handler never waits for a remote service. Instead it issues a promise: a
list of calls executed in order, optionally followed by a callback message.
The promise is stored in the outbox bucket together with all other state
changes of the handler, so either both are persisted or neither is.

Once all calls of a promise were executed (or the first of them failed),
the Resolver removes the promise from the outbox and delivers the callback
message. The callback handler reads the outcome of the calls from the
context using ResultFrom. A handler that is meant to be used only as a
callback should reject any invocation outside of a resolution with
RequireResult.
*/
package promise
