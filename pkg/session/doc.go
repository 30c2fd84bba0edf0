// Package session holds the in-memory state of open dialogs: at most one
// session per user, owned by a concurrency-safe registry.
//
// Invariants:
// - Create/Append/Finish on the same user are linearizable; different users
//   never contend on the same lock.
// - Finish is the sole remover. Exactly one of any concurrent finishers
//   receives the immutable snapshot; losers get nil.
// - ScanStale uses strict greater-than against a single point-in-time read.
//
// Usage:
//
//	reg := session.NewRegistry()
//	_, _ = reg.Create(42)
//	_ = reg.Append(42, session.Turn{UserText: "привет", ReplyText: "..."})
//	snap := reg.Finish(42, session.ReasonManual)
//	_ = snap
package session
