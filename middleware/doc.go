// Package middleware adapts the crewauth engine to net/http.
//
// Gate is the per-request decision point: exemption lookup, Bearer header
// extraction, credential verification, blacklist check, subject resolution,
// and finally principal attachment. Every rejection path terminates at the
// gate with a structured JSON body; no store or codec error crosses it raw.
package middleware
