/*
Package ledger keeps the amounts that were harvested but cannot be paid yet,
keyed by the epoch at which they become claimable.

Inserting into an existing period adds to it. Collecting removes every
period that is due, so that each entry is paid out exactly once.
*/
package ledger
