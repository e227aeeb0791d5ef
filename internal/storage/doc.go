/*
Package storage provides the engine's durable key-value store.

# Overview

Snapshots, the resurrection list, and the tab registry persist through a
small KV interface with two backends:

  - File: one file per key under a root directory, atomic temp+rename
    writes, 0700 directories and 0600 files
  - SQLite: single kv table via modernc.org/sqlite with WAL journaling
    and a busy timeout, migrated through user_version

Keys are ':'-separated segments, for example "tabs:snapshot:<id>".
List accepts doublestar patterns over those segments: '*' matches within
a segment, '**' spans segments.

# Usage

	kv, err := storage.New(cfg, logger)
	if err != nil {
	    return err
	}
	defer kv.Close()

	kv = storage.Instrument(kv, metrics, cfg.Storage.Backend)

	err = storage.SetJSON(ctx, kv, "tabs:snapshot:"+tab.ID, snap)
	keys, err := kv.List(ctx, "tabs:snapshot:*")

# Crash Safety

The file backend syncs and renames so a value is either fully the old
or fully the new bytes. The SQLite backend relies on WAL journaling for
the same guarantee.
*/
package storage
