// services/otp_service.go
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"sync"
	"time"
)

// OTPValidity is the window in which an issued code can be verified.
const OTPValidity = 5 * time.Minute

// ErrDelivery indicates the SMS collaborator failed or is unconfigured. The
// stored OTP survives a delivery failure so the caller can retry sending
// without a new code being generated.
var ErrDelivery = errors.New("otp delivery failed")

// SMSSender delivers a one-time code to a mobile number.
type SMSSender interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore holds at most one outstanding code per mobile number. Entries
// expire by timestamp checked on read; the background sweep only reclaims
// memory and is never load-bearing for correctness.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	now     func() time.Time
}

// NewOTPStore creates an empty store using the wall clock.
func NewOTPStore() *OTPStore {
	return &OTPStore{
		entries: make(map[string]otpEntry),
		now:     time.Now,
	}
}

// Put inserts or overwrites the entry for mobile. Any previously outstanding
// code for that number becomes unverifiable immediately.
func (s *OTPStore) Put(mobile, code string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[mobile] = otpEntry{
		code:      code,
		expiresAt: s.now().Add(ttl),
	}
}

// Peek returns the outstanding code for mobile, if any. An entry observed at
// or past its expiry is purged and reported absent.
func (s *OTPStore) Peek(mobile string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[mobile]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, mobile)
		return "", false
	}
	return entry.code, true
}

// Consume removes the entry for mobile unconditionally.
func (s *OTPStore) Consume(mobile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, mobile)
}

// CompareAndConsume checks the submitted code against the entry for mobile and
// removes the entry only on a match, all under one lock hold. A code issued
// concurrently can therefore never be deleted by a verification of an older
// one. Expired entries are purged and reported as a mismatch.
func (s *OTPStore) CompareAndConsume(mobile, submitted string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[mobile]
	if !ok {
		return false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, mobile)
		return false
	}
	if entry.code != submitted {
		return false
	}
	delete(s.entries, mobile)
	return true
}

// sweep removes all expired entries.
func (s *OTPStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for mobile, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, mobile)
		}
	}
}

// OTPService generates, delivers and verifies one-time codes.
type OTPService struct {
	store  *OTPStore
	sms    SMSSender
	ttl    time.Duration
	logger *log.Logger
}

// NewOTPService creates an OTP service backed by an in-memory store.
func NewOTPService(sms SMSSender) *OTPService {
	return &OTPService{
		store:  NewOTPStore(),
		sms:    sms,
		ttl:    OTPValidity,
		logger: log.New(os.Stdout, "[OTP] ", log.LstdFlags),
	}
}

// StartCleanupRoutine sweeps expired codes in the background.
func (o *OTPService) StartCleanupRoutine() {
	go func() {
		for {
			time.Sleep(time.Minute)
			o.store.sweep()
		}
	}()
}

// Issue generates a fresh 6-digit code for mobile, stores it and sends it via
// SMS. A re-issue invalidates any earlier code for the same number. On
// delivery failure the code stays stored and ErrDelivery is returned.
func (o *OTPService) Issue(ctx context.Context, mobile string) (string, error) {
	code, err := GenerateOTP()
	if err != nil {
		return "", err
	}

	o.store.Put(mobile, code, o.ttl)

	if err := o.sms.SendOTP(ctx, mobile, code); err != nil {
		o.logger.Printf("SMS delivery failed for %s: %v", mobile, err)
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	o.logger.Printf("OTP issued for %s", mobile)
	return code, nil
}

// Verify checks the submitted code and consumes it on success. A wrong code
// leaves the entry intact so the caller may retry until it expires; a correct
// code can never verify twice.
func (o *OTPService) Verify(mobile, submitted string) bool {
	return o.store.CompareAndConsume(mobile, submitted)
}

// GenerateOTP returns a uniformly random 6-digit decimal code in
// [100000, 999999], leading-zero-free by construction.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
