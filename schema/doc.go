// Package schema holds the entity type definitions that steer extraction.
//
// A Shape names an entity type, describes when to use it and lists the
// attribute fields an extracted entity of that type carries. Shapes come
// from three places:
//
//   - Builtins: a small default set (Preference, Procedure, Requirement)
//   - LoadDir: YAML or JSON files under a schema directory, optionally
//     restricted to named subdirectories
//   - Watcher: reloads a schema directory when its files change
//
// The Registry is read when an ingestion task executes, not when it is
// submitted, so a reload affects tasks that are already queued.
package schema
