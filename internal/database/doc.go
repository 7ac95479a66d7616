// Package database manages the persistent catalog for the media vault: the
// media table (content-addressed records with a hard fingerprint uniqueness
// constraint and a soft-delete flag) and the directories table (a
// self-referencing tree). It also creates the collaborator tables (tags,
// mediaTags, playbackHistory, settings) that belong to the surrounding
// application but carry no logic here.
//
// All access goes through SQLite in WAL mode via mattn/go-sqlite3. Mutating
// operations are atomic single-row statements; the cascading directory
// delete runs inside a single transaction obtained from BeginBatch.
package database
