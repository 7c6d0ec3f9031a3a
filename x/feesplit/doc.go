/*
Package feesplit splits an amount between beneficiaries according to a fee
schedule and issues one transfer per non-zero share.

A schedule is an ordered list of beneficiaries, each with a fraction of the
total. Fractions of a valid schedule sum up to exactly one. Each share is
rounded down, the remainder is never paid out.
*/
package feesplit
