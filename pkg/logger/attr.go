package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a group attribute.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". Nil errors produce an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors", keyed by position.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return Group("errors", as...)
}

// RequestID returns a request_id attribute.
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// OrganizationID records an organization id. Use it when logging about an
// organization other than the request's tenant, which is added by the
// tenant extractor as tenant_id.
func OrganizationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("organization_id", id)
}

// PrincipalID returns a principal_id attribute.
func PrincipalID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("principal_id", id)
}

// Source records how a tenant was resolved.
func Source(s string) slog.Attr {
	return slog.String("source", s)
}

// Host returns a host attribute.
func Host(h string) slog.Attr {
	return slog.String("host", h)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration returns a duration attribute.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Count returns a count attribute.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
