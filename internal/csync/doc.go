// Package csync provides the small mutex-guarded collections shared between
// the event loop and goroutines that only read or publish.
//
//	fields := csync.NewMap[string, string]()
//	if old, ok := fields.Swap("text", "asp"); !ok || old != "asp" {
//		// changed
//	}
//
// Snapshots are copies; callers may keep and modify them freely.
package csync
