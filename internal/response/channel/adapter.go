// Package channel contains the per-medium dispatch adapters used by the
// response orchestrator. Each adapter wraps exactly one side-effecting
// transport; the orchestrator owns deadlines, racing, and recording.
// The Adapter contract itself lives in the response package.
package channel

import "leadrelay_backend/internal/response"

// Compile-time checks that every adapter satisfies the contract.
var (
	_ response.Adapter = (*VoiceAdapter)(nil)
	_ response.Adapter = (*SMSAdapter)(nil)
	_ response.Adapter = (*EmailAdapter)(nil)
	_ response.Adapter = (*ChatAdapter)(nil)
)
