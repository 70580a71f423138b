/*
Package compose starts and stops the workflow-automation application
through the docker compose CLI. The restore pipeline relies on Stop to
remove the database's only other writer before overwriting contents,
which is the tool's entire concurrency-control mechanism for the shared
data; a failed stop is therefore always fatal to the caller.
*/
package compose
