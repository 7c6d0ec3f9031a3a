/*
Package harvest defines the interfaces used throughout the reward harvester:
storage, messages, handlers, remote calls and the block information every
operation is executed with.

The harvester keeps a delegated staking position with an external staking
pool, periodically pulls the accrued rewards out of it and distributes them
to beneficiaries. Remote services are never called synchronously. A handler
issues a Call, the call is persisted in the outbox within the same
transaction and the result is delivered later as a new message (a
continuation) that resumes the state machine.

Look into the x/ directory for the extensions that implement the actual
harvesting, splitting and swapping logic.
*/
package harvest
