/*
Package types defines the shared domain types for flowkeep: snapshots and
their manifests, environments, restore run records, and the concurrency
error returned when two invocations contend for the same resource.

Types live here rather than in the packages that produce them so that the
snapshot, restore, registry, and sweep packages can exchange values
without import cycles.
*/
package types
