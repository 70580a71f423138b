/*
Package secret implements the pre-restore encryption-key consistency
gate. The application encrypts persisted credentials with its
environment's key; restoring a snapshot taken under a different key
silently destroys every credential record with no recovery path. The
gate exists to make that failure mode impossible: it runs strictly
before any destructive restore action and blocks on mismatch.
*/
package secret
