// Package server is the HTTP transport: a server-sent-events chat
// endpoint and the index trigger/status pair, backed by a pluggable
// source of raw document bytes.
package server
