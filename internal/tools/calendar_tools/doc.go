// Package calendar_tools implements the MCP calendar tools.
//
// Write tools:
//   - create_calendar_event: Create a timed event
//   - update_calendar_event: Patch the provided fields of an event
//
// Read tools:
//   - get_free_slots: Free slots inside working hours for a date range
//   - get_events_at_time: Events in progress at an instant
//   - list_upcoming_events: The next N events
//
// All tools accept "account" and "calendar_id". Timestamps are ISO 8601;
// input without an offset is read in the account's timezone. Failures are
// returned as tool errors with a one-line message.
//
// In read-only mode only the read tools are registered.
package calendar_tools
