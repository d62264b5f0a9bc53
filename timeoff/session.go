package timeoff

import (
	"github.com/google/uuid"
	"github.com/warp/leave-register/generic"
	"go.uber.org/zap"
)

// Session is the per-request context of an authenticated user. It is passed
// explicitly to every Service call; the service keeps no per-user state.
type Session struct {
	Username  generic.Username
	RequestID string
	Locale    string
}

// NewSession starts a session with a fresh request id.
func NewSession(username generic.Username, locale string) Session {
	return Session{Username: username, RequestID: uuid.NewString(), Locale: locale}
}

// WithRequestID returns a copy carrying an upstream request id.
func (s Session) WithRequestID(id string) Session {
	if id != "" {
		s.RequestID = id
	}
	return s
}

func (s Session) fields() []zap.Field {
	return []zap.Field{
		zap.String("user", string(s.Username)),
		zap.String("request_id", s.RequestID),
	}
}
