package capgains

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxRetries bounds the optimistic retries of ExecuteSale.
const DefaultMaxRetries = 3

type options struct {
	logger     zerolog.Logger
	defaults   *TaxSettings
	currency   string
	maxRetries int
	match      MatchOptions
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithDefaults sets the settings used for users without saved settings.
// Without it, DefaultSettings in the portfolio currency apply.
func WithDefaults(s TaxSettings) Option { return func(o *options) { o.defaults = &s } }

// WithCurrency sets the currency of portfolios that do not declare one.
func WithCurrency(cur string) Option { return func(o *options) { o.currency = cur } }

// WithMaxRetries sets how many times a conflicting sale execution is attempted.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithMatchOptions enables legacy matching behaviours.
func WithMatchOptions(m MatchOptions) Option { return func(o *options) { o.match = m } }

// WithClock sets the clock used for LastCalculated.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func newOptions(opts []Option) options {
	o := options{
		logger:     zerolog.Nop(),
		currency:   "EUR",
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
