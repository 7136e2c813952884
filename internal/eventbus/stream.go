package eventbus

import "parlor-chat/internal/domain"

// MessageStream projects a room subscription down to the posted messages.
// Consumers that want escaped output compose the sanitizer on top; the
// stream itself carries the stored content untouched.
type MessageStream struct {
	sub *Subscription
	ch  chan domain.Message
}

// Messages returns the receive channel. It is closed shortly after the
// stream is closed, once queued messages have been forwarded.
func (ms *MessageStream) Messages() <-chan domain.Message {
	return ms.ch
}

// Close ends the stream. Idempotent.
func (ms *MessageStream) Close() {
	ms.sub.Close()
}

func (ms *MessageStream) run() {
	defer close(ms.ch)

	for ev := range ms.sub.Events() {
		if ev.Kind != domain.EventMessagePosted || ev.Message == nil {
			continue
		}
		select {
		case ms.ch <- *ev.Message:
			continue
		default:
		}

		// Same drop-oldest policy as the underlying subscription.
		select {
		case <-ms.ch:
		default:
		}
		select {
		case ms.ch <- *ev.Message:
		default:
		}
	}
}
