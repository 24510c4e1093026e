// Package rotation assigns leads to brokerage agents in round-robin order.
//
// # Roster
//
// The roster is every team member with status "Active" and lead rotation
// enabled, ordered by id. It is read fresh on each call and never cached, so
// adding or removing a member shifts which agent a stored cursor points at.
//
// # Cursor
//
// The cursor is the last assigned roster index, persisted as a JSON integer in
// automation_settings (default key "last_assigned_agent_index", initial value
// -1). The next index is always (cursor + 1) mod len(roster).
//
// Two modes are supported:
//
//   - read_write (default): read cursor, write lead, write cursor. Concurrent
//     calls can read the same cursor and both assign the same agent. A failed
//     cursor write is logged and the next call repeats the agent.
//   - atomic: the cursor is advanced with a single increment-and-fetch before
//     the lead write. Concurrent calls always get distinct slots, and a failed
//     lead write consumes its slot.
//
// # Batch assignment
//
// AssignBatch materializes a lead from each communication log, in the order
// the ids were given. Insert failures skip that log and leave the cursor where
// it was; the call still succeeds with a reduced count. There is no rollback.
package rotation
