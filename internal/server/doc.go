// Package server implements a line-oriented TCP chat server.
//
// Each accepted connection negotiates a unique nickname, then sends lines that
// are either broadcast to every session or whispered to one (/w <nickname>
// <message>). The Registry is the only shared chat state; broadcasts and
// shutdown take a snapshot of it and write outside its lock.
//
// The implementation is organized into files for configuration, the client
// registry, the hub, sessions and the admin HTTP surface, which also offers a
// websocket gateway speaking the same line protocol.
package server
