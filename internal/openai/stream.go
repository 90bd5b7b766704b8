package openai

import "context"

// Stream delivers completion tokens in arrival order over a channel. The
// producer feeds it with Send and finishes with Close or Fail; the consumer
// ranges over Tokens and checks Err once the channel is closed. The error is
// written before the channel closes, so a consumer that has seen the close
// may read Err without further synchronization.
type Stream struct {
	tokens chan string
	err    error
}

// NewStream creates a token stream with the given channel buffer.
func NewStream(buffer int) *Stream {
	return &Stream{tokens: make(chan string, buffer)}
}

// Tokens returns the channel tokens arrive on. It is closed when the stream
// ends, successfully or not.
func (s *Stream) Tokens() <-chan string {
	return s.tokens
}

// Err reports why the stream ended. Valid only after Tokens is closed; nil
// means clean completion.
func (s *Stream) Err() error {
	return s.err
}

// Send delivers one token, or gives up when the context is cancelled (the
// consumer is gone and nobody will drain the channel).
func (s *Stream) Send(ctx context.Context, token string) error {
	select {
	case s.tokens <- token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream cleanly.
func (s *Stream) Close() {
	close(s.tokens)
}

// Fail ends the stream with an error.
func (s *Stream) Fail(err error) {
	s.err = err
	close(s.tokens)
}
