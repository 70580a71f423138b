// Package sweep reclaims disk from expired snapshot directories.
//
// A sweep pass walks the snapshot root and deletes every directory
// whose timestamped name puts it past the retention age. The pass is
// conservative where it has to be:
//
//   - directories marked in-use by a running restore are left alone
//   - failed partial builds get a minimum grace period so an operator
//     can inspect what went wrong before the remains vanish
//   - the per-directory advisory lock is taken before deletion, so a
//     sweep never races a restore that is about to read the files
//
// Failures are per-directory: an undeletable entry is logged and
// counted, and the pass moves on. Running the sweeper twice in a row is
// safe; the second pass simply finds nothing expired.
package sweep
