/*
Package harvesttest provides helpers for testing the harvester: transaction
and message mocks, block information constructors and a simulated staking
pool that answers remote calls.
*/
package harvesttest
