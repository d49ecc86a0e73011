package thread

import (
	"context"
	"time"

	"github.com/teemow/threadkeeper/internal/gmail"
	"github.com/teemow/threadkeeper/internal/instrumentation"
)

// InstrumentedMailer wraps a Mailer with a client span and a Google API
// metric per call. Spans are cheap no-ops when no tracer provider is
// configured; a nil metrics recorder disables metric recording.
type InstrumentedMailer struct {
	mailer  Mailer
	metrics *instrumentation.Metrics
}

// NewInstrumentedMailer wraps mailer. metrics may be nil.
func NewInstrumentedMailer(mailer Mailer, metrics *instrumentation.Metrics) *InstrumentedMailer {
	return &InstrumentedMailer{mailer: mailer, metrics: metrics}
}

// FindThread implements Mailer.
func (im *InstrumentedMailer) FindThread(ctx context.Context, threadID string) (*gmail.ThreadRef, error) {
	var ref *gmail.ThreadRef
	err := im.instrument(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		ref, err = im.mailer.FindThread(ctx, threadID)
		return err
	})
	return ref, err
}

// SearchThreadByToken implements Mailer.
func (im *InstrumentedMailer) SearchThreadByToken(ctx context.Context, token string) (*gmail.ThreadRef, error) {
	var ref *gmail.ThreadRef
	err := im.instrument(ctx, instrumentation.OperationSearch, func(ctx context.Context) error {
		var err error
		ref, err = im.mailer.SearchThreadByToken(ctx, token)
		return err
	})
	return ref, err
}

// ThreadingHeaders implements Mailer.
func (im *InstrumentedMailer) ThreadingHeaders(ctx context.Context, messageID string) (*gmail.ThreadingHeaders, error) {
	var headers *gmail.ThreadingHeaders
	err := im.instrument(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		headers, err = im.mailer.ThreadingHeaders(ctx, messageID)
		return err
	})
	return headers, err
}

// Send implements Mailer.
func (im *InstrumentedMailer) Send(ctx context.Context, msg *gmail.OutgoingMessage) (*gmail.SentMessage, error) {
	var sent *gmail.SentMessage
	err := im.instrument(ctx, instrumentation.OperationSend, func(ctx context.Context) error {
		var err error
		sent, err = im.mailer.Send(ctx, msg)
		return err
	})
	return sent, err
}

// SendViaDraft implements Mailer.
func (im *InstrumentedMailer) SendViaDraft(ctx context.Context, msg *gmail.OutgoingMessage) (*gmail.SentMessage, error) {
	var sent *gmail.SentMessage
	err := im.instrument(ctx, instrumentation.OperationSendDraft, func(ctx context.Context) error {
		var err error
		sent, err = im.mailer.SendViaDraft(ctx, msg)
		return err
	})
	return sent, err
}

func (im *InstrumentedMailer) instrument(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	if im.metrics != nil {
		im.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, duration)
	}

	return err
}
