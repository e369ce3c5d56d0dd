// Package srt opens SRT (Secure Reliable Transport) connections as ingest
// sources, either by dialing a remote listener (Pull) or by accepting one
// publisher on a local address (Accept).
package srt
