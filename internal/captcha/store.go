// Package captcha issues one-time visual challenges gating room entry.
package captcha

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mojocn/base64Captcha"

	"github.com/FirasLatrech/Whispr/internal/domain"
	"github.com/FirasLatrech/Whispr/internal/log"
)

// charSource excludes visually ambiguous glyphs (0/O, 1/l/I, 5/S, 8/B).
const charSource = "234679ACDEFGHJKMNPQRTUVWXYZacdefhjkmnpqrtuvwxyz"

// Challenge is what the join flow receives: an opaque id plus the
// rendered image, never the answer.
type Challenge struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type entry struct {
	answer    string
	expiresAt time.Time
}

// Store issues challenges and verifies answers exactly once.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	driver  *base64Captcha.DriverString

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	cancelSweep   context.CancelFunc
}

func NewStore() *Store {
	return &Store{
		entries:       make(map[string]entry),
		driver:        base64Captcha.NewDriverString(64, 200, 4, base64Captcha.OptionShowHollowLine, 5, charSource, nil, nil, nil),
		ttl:           domain.CaptchaTTL,
		sweepInterval: domain.CaptchaSweepInterval,
		now:           time.Now,
	}
}

// Create generates a fresh challenge, stores the expected answer under
// a random id with the configured expiry, and returns the rendered
// image as a base64 data URI.
func (s *Store) Create() (Challenge, error) {
	_, content, answer := s.driver.GenerateIdQuestionAnswer()

	item, err := s.driver.DrawCaptcha(content)
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to render captcha: %w", err)
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.entries[id] = entry{answer: answer, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	return Challenge{ID: id, Image: item.EncodeB64string()}, nil
}

// Verify consumes the entry for id regardless of outcome, then
// compares the answer case-insensitively after trimming whitespace.
// Unknown or expired ids fail.
func (s *Store) Verify(id, answer string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok || s.now().After(e.expiresAt) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), e.answer)
}

// StartSweep launches the background purge of expired-but-unverified
// entries. Stop with StopSweep or by cancelling ctx.
func (s *Store) StartSweep(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelSweep = cancel

	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepExpired()
			}
		}
	}()
}

// StopSweep terminates the background sweep.
func (s *Store) StopSweep() {
	if s.cancelSweep != nil {
		s.cancelSweep()
	}
}

// SweepExpired removes expired entries and returns how many were removed.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}

	if removed > 0 {
		lg := log.L()
		lg.Debug().Int("captchas_removed", removed).Msg("captcha sweep completed")
	}
	return removed
}
