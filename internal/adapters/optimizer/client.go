package optimizer

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Options configure a Client. Zero values fall back to the defaults below.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	HTTPClient *http.Client
}

// Client calls the external route optimizer.
//
// Every call waits on a shared rate limiter and runs through a circuit
// breaker that counts only transport failures. Nothing is retried.
//
// The client is safe for concurrent use.
type Client struct {
	session  *http.Client
	baseURL  string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	validate *validator.Validate
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("optimizer base url is empty")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	session := opts.HTTPClient
	if session == nil {
		session = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "optimizer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		session:  session,
		baseURL:  base,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  breaker,
		validate: validator.New(),
	}, nil
}
