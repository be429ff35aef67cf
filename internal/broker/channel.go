// Package broker abstracts the message transport used for the asynchronous
// scrape request/reply exchange. The transport is at-most-once: a published
// message may never arrive, and the consuming side must tolerate that.
package broker

import "context"

// Message is a single broker-carried message.
type Message struct {
	Destination string
	Body        []byte
}

// Channel is the publish/subscribe transport abstraction. Publish and
// Subscribe are safe for concurrent use.
type Channel interface {
	// Publish sends body to the given destination. An error means the
	// broker was unreachable and the message was not sent.
	Publish(ctx context.Context, destination string, body []byte) error

	// Subscribe returns a channel of inbound messages for every
	// destination matching the glob-style pattern. The returned channel
	// is closed when ctx is cancelled or the Channel is closed.
	Subscribe(ctx context.Context, pattern string) (<-chan Message, error)

	// Close releases the underlying connection.
	Close() error
}
