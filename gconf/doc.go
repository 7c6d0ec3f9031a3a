/*
Package gconf implements a configuration store intended to be used as a global,
in-database configuration.

Each extension keeps a single JSON encoded configuration object stored under
the "_c:<package name>" key. The configuration is loaded from the genesis
file, can be read with Load and can be changed only by its owner through the
update configuration handler.
*/
package gconf
