package ratelimit

import "time"

// Config tunes the per-endpoint-class limiters.
type Config struct {
	LoginMax            int
	LoginWindow         time.Duration
	RegistrationMax     int
	RegistrationWindow  time.Duration
	UploadMax           int
	UploadWindow        time.Duration
	APIMax              int
	APIWindow           time.Duration
	SweepInterval       time.Duration
}

// Set bundles one limiter per protected endpoint class. Thresholds are tuned
// independently: login and registration are strict, uploads moderate, the
// generic API budget loose.
type Set struct {
	Login        *Limiter
	Registration *Limiter
	Upload       *Limiter
	API          *Limiter

	sweepInterval time.Duration
}

// NewSet constructs the endpoint-class limiters from configuration.
func NewSet(cfg Config) *Set {
	return &Set{
		Login:         New(cfg.LoginMax, cfg.LoginWindow),
		Registration:  New(cfg.RegistrationMax, cfg.RegistrationWindow),
		Upload:        New(cfg.UploadMax, cfg.UploadWindow),
		API:           New(cfg.APIMax, cfg.APIWindow),
		sweepInterval: cfg.SweepInterval,
	}
}

// StartSweepers begins background cleanup on every limiter in the set.
func (s *Set) StartSweepers() {
	for _, l := range s.all() {
		l.StartSweeper(s.sweepInterval)
	}
}

// StopSweepers halts background cleanup on every limiter in the set.
func (s *Set) StopSweepers() {
	for _, l := range s.all() {
		l.StopSweeper()
	}
}

func (s *Set) all() []*Limiter {
	return []*Limiter{s.Login, s.Registration, s.Upload, s.API}
}
