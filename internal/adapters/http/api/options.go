package api

import "github.com/okian/hiscore/pkg/logger"

const defaultMaxBodyBytes = 100 << 10

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCORSOrigins sets the origins reflected in CORS responses. "*" allows
// any origin; an empty list turns CORS headers off.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRateLimit enables a per-client token bucket of rps requests per
// second with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = max(burst, 1)
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger enables per-request debug logging.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
