/*
Package orm provides an easy to use db wrapper.

State space is broken into prefixed sections called buckets. Each bucket
contains only one type of object, serialized as JSON. Keys are raw bytes,
the bucket prefix is added and stripped transparently.

Sequences provide monotonically increasing identifiers whose big-endian
encoding sorts in the same order as the numbers.
*/
package orm
