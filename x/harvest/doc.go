/*
Package harvest implements the reward harvester: the state machine driving
the ping, inspect, withdraw and unstake call chain against a staking pool,
the reward counters and the release of harvested rewards to beneficiaries.

A harvest chain starts with HarvestMsg. Every remote call is issued as a
promise and its outcome is delivered to one of the callback handlers, which
advance the persisted phase. A successful withdrawal is settled right away:
the eligible part of the available rewards is paid out according to the
configured policy.

The harvester supports four policies. Flat pays a single beneficiary, fee
split pays many according to a schedule, swap converts the rewards through
an exchange and forwards the bought asset, deferred records unstaked
amounts by their unlock epoch and pays them once due.
*/
package harvest
