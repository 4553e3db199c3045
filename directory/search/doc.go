// Package search implements provider search on top of a directory.DB.
//
// A search runs in three steps. Compile turns directory.Filters into a single statement selecting
// the distinct contracts of matching operational providers. The Denormalizer then loads the provider
// rows and their location, specialty, category, and review rows for those contracts concurrently and
// assembles nested directory.Provider values. Finally the providers are sorted by name or rating.
//
// The package never talks to a database library directly, so every backend variant of
// sqliteengine can serve it without changes.
package search
