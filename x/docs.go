/*
Package x contains the extensions of the harvester.

Each sub-package implements one concern (the reward ledger, fee splitting,
swapping, asynchronous call bookkeeping) as a set of handlers, models and
query handlers that are combined together by the app package.

This package holds what all extensions share: the authentication of the
caller and the deposit attached to an operation.
*/
package x
