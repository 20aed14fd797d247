package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bsw-iitd/auth-server/internal/mail"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/token"
	"github.com/bsw-iitd/auth-server/internal/util"
)

var (
	ErrOTPNotFound        = errors.New("no pending verification for email")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrOTPInvalid         = errors.New("verification code does not match")
	ErrSignupNotPermitted = errors.New("client does not permit password signup")
	ErrOTPDeliveryFailed  = errors.New("failed to deliver verification code")
	ErrEmailRequired      = errors.New("email is required")
	ErrClientRequired     = errors.New("client id is required")
)

// OTPService gates password signups behind a mailed 6-digit code. At most one
// live code exists per email; a new request overwrites the previous one.
type OTPService struct {
	store   *store.Store
	tokens  *token.Provider
	mailer  mail.Mailer
	audit   *AuditService
	metrics metrics.Recorder
	otpTTL  time.Duration
}

func NewOTPService(
	s *store.Store,
	tokens *token.Provider,
	mailer mail.Mailer,
	audit *AuditService,
	recorder metrics.Recorder,
	otpTTL time.Duration,
) *OTPService {
	return &OTPService{
		store:   s,
		tokens:  tokens,
		mailer:  mailer,
		audit:   audit,
		metrics: recorder,
		otpTTL:  otpTTL,
	}
}

// Request generates a fresh code for the email, stores its bcrypt hash, and
// mails the plaintext. The plaintext exists only in the outbound mail. A
// delivery failure is surfaced to the caller; the stored hash is useless
// without the mail, and the next request overwrites it anyway.
//
// The requesting client must exist and permit password signups; a
// federation-only client cannot open this path.
func (s *OTPService) Request(ctx context.Context, email, clientID string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}

	client, err := s.lookupClient(clientID)
	if err != nil {
		return err
	}
	if !client.AllowsPassword() {
		return ErrSignupNotPermitted
	}

	if _, err := s.store.GetUserByEmail(email); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("request otp: %w", err)
	}

	code, err := util.RandomOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	if err := s.store.UpsertSignupOTP(email, string(hash), time.Now().Add(s.otpTTL)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.mailer.Send(ctx, email, mail.OTPSubject, mail.OTPEmailHTML(code)); err != nil {
		s.metrics.RecordMailSent(false)
		s.metrics.RecordOTPRequested(false)
		return fmt.Errorf("%w: %v", ErrOTPDeliveryFailed, err)
	}

	s.metrics.RecordMailSent(true)
	s.metrics.RecordOTPRequested(true)

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventOTPRequested,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceOTP,
		ResourceID:   email,
		Action:       "request signup otp",
		Success:      true,
	})

	return nil
}

// VerifyRequest identifies the pending signup being confirmed.
type VerifyRequest struct {
	Email    string
	OTP      string
	ClientID string
}

// Verify checks the code against the stored hash, creates the user, deletes
// the code record, and returns an onboarding token. The delete means a code
// verifies at most once. The created account has no password yet; password
// and profile arrive later under the onboarding token, and until then the
// account cannot pass password login.
func (s *OTPService) Verify(ctx context.Context, req VerifyRequest) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, "", ErrEmailRequired
	}

	// The client may have been deleted between request and verify.
	if _, err := s.lookupClient(req.ClientID); err != nil {
		return nil, "", err
	}

	record, err := s.store.GetSignupOTP(email)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.RecordOTPVerified("not_found")
		return nil, "", ErrOTPNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("verify otp: %w", err)
	}

	if record.IsExpired() {
		s.metrics.RecordOTPVerified("expired")
		return nil, "", ErrOTPExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(record.OTPHash), []byte(req.OTP)) != nil {
		s.metrics.RecordOTPVerified("invalid")
		return nil, "", ErrOTPInvalid
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		IsActive:  true,
		Roles:     models.RoleUser,
		Type:      models.TypeInternal,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	// The code is spent; remove it so it cannot verify twice
	if err := s.store.DeleteSignupOTP(email); err != nil {
		return nil, "", fmt.Errorf("consume otp: %w", err)
	}

	onboardingToken, err := s.tokens.SignOnboarding(email)
	if err != nil {
		return nil, "", fmt.Errorf("sign onboarding token: %w", err)
	}

	s.metrics.RecordOTPVerified("success")
	s.metrics.RecordTokenIssued("onboarding")

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventOTPVerified,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "verify signup otp",
		Details:      models.AuditDetails{"email": email},
		Success:      true,
	})

	return user, onboardingToken, nil
}

func (s *OTPService) lookupClient(clientID string) (*models.Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrClientRequired
	}

	client, err := s.store.GetClientByClientID(clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	return client, nil
}
