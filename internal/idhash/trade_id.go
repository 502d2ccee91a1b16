// Package idhash produces deterministic identifiers so that re-running a
// simulation with identical inputs yields an identical record key.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(call_id|policy_id|cost_id|entry_timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(callID, policyID, costID string, entryTimestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", callID, policyID, costID, entryTimestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
