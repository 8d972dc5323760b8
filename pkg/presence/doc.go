// Package presence provides the shared Redis schema, wire envelope and client
// used by murmur peers to find each other and exchange messages.
//
// # Overview
//
// Every running peer owns an identity token. Peers advertise themselves in a
// single shared registry key and listen on a channel derived from their own
// token. Any peer can greet any other peer by publishing an envelope to that
// peer's channel.
//
// # Core Concepts
//
// Tokens are random UUIDs generated once per process by NewToken.
//
// The registry is one Redis string holding a JSON array of tokens. It is
// mutated with read-modify-write under WATCH/MULTI/EXEC so that concurrent
// registrations and deregistrations never overwrite each other.
//
// Envelopes are the fixed-shape wire messages {"uuid": ..., "content": ...}
// with an optional "kind" tag distinguishing greetings from replies.
//
// # Multi-Instance Support
//
// A Client created with a non-empty namespace prefixes the registry key and
// every channel with murmur:{namespace}:, so several independent meshes can
// share one Redis server. The empty namespace uses the bare names below.
//
// # Usage Example
//
//	client, err := presence.NewClient(&redis.Options{Addr: "localhost:6379"}, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	self := presence.NewToken()
//	if err := client.Add(ctx, self); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Remove(context.Background(), self)
//
//	env := presence.Envelope{SenderID: self, Kind: presence.KindGreeting, Content: "hello"}
//	err = client.Send(ctx, peer, env)
//
// # Redis Schema
//
// Registry: connected_ids (JSON array of tokens)
// Channels: {token} CHANNEL
//
// Namespaced registry: murmur:{namespace}:connected_ids
// Namespaced channels: murmur:{namespace}:{token} CHANNEL
package presence
