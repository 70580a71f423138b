/*
Package pgtool wraps the PostgreSQL command-line tools behind the
proc.Runner seam: pg_dump for snapshot dumps, psql for replay and
row-count queries, pg_isready for readiness probing.

Credentials travel as PGPASSWORD in the subprocess environment and are
never part of the argument vector, so they do not appear in process
listings or logged command lines.
*/
package pgtool
