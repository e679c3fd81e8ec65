// Package threads provides a client for the graph service's thread API.
// A thread is a server-side container of execution state and its checkpointed
// history. The client never interprets thread status or checkpoint contents;
// both are passed through as the service returns them.
package threads
