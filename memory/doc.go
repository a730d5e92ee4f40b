// Package memory holds the in-memory conversation model of a chat session.
//
// Model:
//   - Message: role, kind (text or error), text, tool-call records.
//   - History: append-only during a session; cleared only as a whole.
//   - Transcripts can be exported as JSON for audit; nothing is loaded back.
package memory
