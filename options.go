package parley

// Functional options applied during construction in New. Options run
// before the bearer-token transport wrapper is installed, so
// transport-related options sit underneath it.

import (
	"fmt"
	"time"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithSelfID sets the current user's id. It drives self-activity
// detection (read positions), one-on-one space naming, and the
// participant removed on LeaveSpace.
func WithSelfID(userID string) Option {
	return func(c *Client) error {
		if userID == "" {
			return fmt.Errorf("self id must not be empty")
		}
		c.selfID = userID
		return nil
	}
}

// WithHTTPTimeout sets the underlying http.Client Timeout.
//
// Prefer per-request context deadlines where possible; this is a
// coarse safety net bounding the total time of a single HTTP request.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request and
// response is dumped to the log when enabled. Not for production use.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.http.Transport = &debugTransport{base: c.http.Transport}
		}
		return nil
	}
}

// WithExecutor replaces the default send-queue executor. Mainly for
// tests.
func WithExecutor(exec executor) Option {
	return func(c *Client) error {
		if exec == nil {
			return fmt.Errorf("executor must not be nil")
		}
		c.exec = exec
		return nil
	}
}
