// Package state persists the small set of string properties threadkeeper
// needs between runs, most importantly the Gmail thread ID of the ongoing
// digest conversation.
//
// The delivery pipeline only ever sees the Store interface, a minimal
// get/set capability. The production implementation is FileStore, a single
// JSON document written atomically so a crash mid-write never leaves a
// truncated state file. MemStore backs tests.
//
// # Keys
//
//   - threadId:     the conversation the next digest should continue
//   - lastThreadId: the previous conversation, archived when a new one
//     is created
//
// Runs are serialized by the trigger, so the store does no cross-process
// locking.
package state
