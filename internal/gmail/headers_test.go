package gmail

import (
	"errors"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func TestHeaderValue(t *testing.T) {
	tests := []struct {
		name       string
		headers    []*gmail.MessagePartHeader
		headerName string
		want       string
	}{
		{
			name: "existing header",
			headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "sender@example.com"},
				{Name: "To", Value: "recipient@example.com"},
				{Name: "Subject", Value: "Test Subject"},
			},
			headerName: "From",
			want:       "sender@example.com",
		},
		{
			name: "missing header",
			headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "sender@example.com"},
			},
			headerName: "Cc",
			want:       "",
		},
		{
			name:       "nil payload",
			headers:    nil,
			headerName: "From",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &gmail.Message{
				Payload: &gmail.MessagePart{
					Headers: tt.headers,
				},
			}

			// Test nil payload
			if tt.headers == nil {
				msg.Payload = nil
			}

			got := HeaderValue(msg, tt.headerName)
			if got != tt.want {
				t.Errorf("HeaderValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageIDFromRaw(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "plain header",
			raw: "From: sender@example.com\r\n" +
				"Message-ID: <abc123@mail.gmail.com>\r\n" +
				"Subject: Test\r\n" +
				"\r\n" +
				"Body content",
			want: "<abc123@mail.gmail.com>",
		},
		{
			name: "lowercase header name",
			raw: "from: sender@example.com\r\n" +
				"message-id: <abc123@mail.gmail.com>\r\n" +
				"\r\n" +
				"Body content",
			want: "<abc123@mail.gmail.com>",
		},
		{
			name: "folded header value",
			raw: "From: sender@example.com\r\n" +
				"Message-ID:\r\n" +
				" <abc123@mail.gmail.com>\r\n" +
				"\r\n" +
				"Body content",
			want: "<abc123@mail.gmail.com>",
		},
		{
			name: "LF only line endings",
			raw: "From: sender@example.com\n" +
				"Message-ID: <abc123@mail.gmail.com>\n" +
				"\n" +
				"Body content",
			want: "<abc123@mail.gmail.com>",
		},
		{
			name: "missing header",
			raw: "From: sender@example.com\r\n" +
				"Subject: Test\r\n" +
				"\r\n" +
				"Body content",
			wantErr: true,
		},
		{
			name: "header-looking line in body is ignored",
			raw: "From: sender@example.com\r\n" +
				"Subject: Test\r\n" +
				"\r\n" +
				"Message-ID: <fake@example.com>\r\n",
			wantErr: true,
		},
		{
			name: "malformed value without brackets",
			raw: "Message-ID: abc123@mail.gmail.com\r\n" +
				"\r\n" +
				"Body content",
			wantErr: true,
		},
		{
			name:    "empty message",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MessageIDFromRaw([]byte(tt.raw))

			if tt.wantErr {
				if err == nil {
					t.Fatalf("MessageIDFromRaw() = %v, want error", got)
				}
				if !errors.Is(err, ErrNoMessageID) {
					t.Errorf("MessageIDFromRaw() error = %v, want ErrNoMessageID", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("MessageIDFromRaw() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MessageIDFromRaw() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReferencesFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "single reference",
			raw: "References: <ref1@example.com>\r\n" +
				"Message-ID: <abc123@mail.gmail.com>\r\n" +
				"\r\n" +
				"Body content",
			want: "<ref1@example.com>",
		},
		{
			name: "multiple references",
			raw: "References: <ref1@example.com> <ref2@example.com>\r\n" +
				"\r\n" +
				"Body content",
			want: "<ref1@example.com> <ref2@example.com>",
		},
		{
			name: "folded across lines",
			raw: "References: <ref1@example.com>\r\n" +
				" <ref2@example.com>\r\n" +
				"\r\n" +
				"Body content",
			want: "<ref1@example.com> <ref2@example.com>",
		},
		{
			name: "no references header",
			raw: "Message-ID: <abc123@mail.gmail.com>\r\n" +
				"\r\n" +
				"Body content",
			want: "",
		},
		{
			name: "references in body are ignored",
			raw: "Subject: Test\r\n" +
				"\r\n" +
				"References: <fake@example.com>\r\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReferencesFromRaw([]byte(tt.raw))
			if got != tt.want {
				t.Errorf("ReferencesFromRaw() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildReferences(t *testing.T) {
	tests := []struct {
		name            string
		priorReferences string
		messageID       string
		want            string
	}{
		{
			name:            "with prior references",
			priorReferences: "<ref1@example.com> <ref2@example.com>",
			messageID:       "<abc123@mail.gmail.com>",
			want:            "<ref1@example.com> <ref2@example.com> <abc123@mail.gmail.com>",
		},
		{
			name:            "without prior references",
			priorReferences: "",
			messageID:       "<abc123@mail.gmail.com>",
			want:            "<abc123@mail.gmail.com>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildReferences(tt.priorReferences, tt.messageID)
			if got != tt.want {
				t.Errorf("BuildReferences() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{
			name:    "add Re: to subject without Re:",
			subject: "Status Report",
			want:    "Re: Status Report",
		},
		{
			name:    "don't duplicate Re: in subject",
			subject: "Re: Status Report",
			want:    "Re: Status Report",
		},
		{
			name:    "case insensitive Re: check",
			subject: "RE: Status Report",
			want:    "RE: Status Report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplySubject(tt.subject)
			if got != tt.want {
				t.Errorf("ReplySubject() = %v, want %v", got, tt.want)
			}

			// Should not have double Re:
			if strings.Count(strings.ToLower(got), "re:") > 1 {
				t.Errorf("ReplySubject() has multiple Re: prefixes: %v", got)
			}
		})
	}
}
