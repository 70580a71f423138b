/*
Package snapshot builds and verifies point-in-time captures of a
workflow-automation deployment.

A snapshot is a directory named by its creation timestamp:

	20260829_141503/
	├── database.sql.gz     compressed logical dump (pg_dump --clean)
	├── data.tar.gz         compressed archive of the data root
	├── config/             verbatim configuration copies
	│   ├── docker-compose.yml
	│   └── cloudflared/config.yml
	└── manifest.json       table of contents + SHA-256 per artifact

Build pipeline:

	dump (refuse empty) → compress → archive data root → copy configs
	→ checksum each closed artifact → write manifest last

The manifest is written last, so any directory holding one has all its
artifacts physically in place. Checksums are computed only after each
write stream is closed; there is no checksum-before-flush window.

Failures leave the partial directory on disk with a FAILED marker: it
is never loadable for restore, and the retention sweeper will not
delete it before the configured minimum retention time, so operators
can inspect what went wrong.

Verify recomputes every digest and reports the specific sub-failures
(missing, empty, mismatched) in one *VerificationError rather than a
generic rejection.

The package also owns the snapshot-level concurrency primitives: the
advisory lock file taken by restore and sweep invocations, and the
in-use marker that shields a snapshot mid-restore from the sweeper.
*/
package snapshot
