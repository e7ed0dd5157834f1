// Package catalog is the badger-backed store behind the cluster statistics:
// registered sources, namespace datasets, spaces, users, job history, and
// accelerations with their materializations.
//
// Records are stored as JSON under key prefixes:
//
//	src/<name>                       SourceConfig
//	ds/<path components>             DatasetConfig
//	space/<name>                     SpaceConfig
//	user/<name>                      user marker
//	job/<start unix nanos>/<id>      JobRecord (time ordered for range scans)
//	acc/<id>                         Acceleration
//	mat/<layout id>/<id>             Materialization
//
// Namespace names are case-insensitive; keys use the lower-cased name.
// Lookup and write failures are reported as *types.NamespaceError.
package catalog
