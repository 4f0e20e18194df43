package impl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"auth/internal/domain"
	"auth/internal/dto"
	"auth/internal/observability/metrics"
	"auth/internal/service"
	"auth/internal/store"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("auth")
	os.Exit(m.Run())
}

type capturedMessage struct {
	dest service.Destination
	code string
	name string
}

type captureNotifier struct {
	mu            sync.Mutex
	codes         []capturedMessage
	confirmations []capturedMessage
	failCode      error
	failConfirm   error
}

func (n *captureNotifier) SendCode(ctx context.Context, dest service.Destination, code, displayName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failCode != nil {
		return n.failCode
	}
	n.codes = append(n.codes, capturedMessage{dest: dest, code: code, name: displayName})
	return nil
}

func (n *captureNotifier) SendConfirmation(ctx context.Context, dest service.Destination, displayName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failConfirm != nil {
		return n.failConfirm
	}
	n.confirmations = append(n.confirmations, capturedMessage{dest: dest, name: displayName})
	return nil
}

func (n *captureNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return ""
	}
	return n.codes[len(n.codes)-1].code
}

type testEnv struct {
	db       *gorm.DB
	st       *store.Store
	notifier *captureNotifier
	pw       service.PasswordService
	tokens   service.ResetTokenService
	auth     *AuthServiceImpl
	otp      *OTPLoginServiceImpl
	reset    *PasswordResetServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.User{}, &domain.OTPRecord{}, &domain.AuditEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	st := store.New(gdb)
	notifier := &captureNotifier{}
	audit := NewAuditRecorder(st)
	pw := NewPasswordServiceArgon2id()
	tokens := NewResetTokenServiceHS256(ResetTokenConfig{SigningKey: []byte("test-secret"), TTL: 10 * time.Minute})
	cfg := OTPConfig{}

	return &testEnv{
		db:       gdb,
		st:       st,
		notifier: notifier,
		pw:       pw,
		tokens:   tokens,
		auth:     NewAuthServiceImpl(st, pw, audit, cfg),
		otp:      NewOTPLoginServiceImpl(st, notifier, audit, cfg),
		reset:    NewPasswordResetServiceImpl(st, pw, tokens, notifier, audit, cfg),
	}
}

func (e *testEnv) createUser(t *testing.T, u *domain.User) *domain.User {
	t.Helper()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = domain.RoleViewer
	}
	if err := e.st.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) setOTPCode(t *testing.T, userID uuid.UUID, code string) {
	t.Helper()
	if err := e.db.Model(&domain.OTPRecord{}).Where("user_id = ?", userID).Update("code", code).Error; err != nil {
		t.Fatalf("set otp code: %v", err)
	}
}

func (e *testEnv) backdateOTP(t *testing.T, userID uuid.UUID, d time.Duration) {
	t.Helper()
	past := time.Now().UTC().Add(-d)
	if err := e.db.Model(&domain.OTPRecord{}).Where("user_id = ?", userID).Update("created_at", past).Error; err != nil {
		t.Fatalf("backdate otp: %v", err)
	}
}

func (e *testEnv) expireOTP(t *testing.T, userID uuid.UUID) {
	t.Helper()
	past := time.Now().UTC().Add(-time.Second)
	if err := e.db.Model(&domain.OTPRecord{}).Where("user_id = ?", userID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("expire otp: %v", err)
	}
}

func (e *testEnv) reloadUser(t *testing.T, id uuid.UUID) *domain.User {
	t.Helper()
	u, err := e.st.Users().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func (e *testEnv) otpCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&domain.OTPRecord{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count otps: %v", err)
	}
	return n
}

func (e *testEnv) auditEvents(t *testing.T, userID uuid.UUID) []domain.AuditEventType {
	t.Helper()
	events, err := e.st.Audits().RecentForUser(context.Background(), userID, 50)
	if err != nil {
		t.Fatalf("recent audits: %v", err)
	}
	types := make([]domain.AuditEventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	return types
}

func hasEvent(types []domain.AuditEventType, want domain.AuditEventType) bool {
	for _, tpe := range types {
		if tpe == want {
			return true
		}
	}
	return false
}

// ====== OTP login ======

func TestOTPLoginEndToEndLadder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "5551234567"

	if _, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "203.0.113.9", "ua"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	user, err := env.st.Users().GetByPhoneNumber(ctx, phone)
	if err != nil {
		t.Fatalf("provisioned user missing: %v", err)
	}
	if user.Role != domain.RoleViewer {
		t.Fatalf("provisioned role = %s, want Viewer", user.Role)
	}
	env.setOTPCode(t, user.ID, "111111")

	// Four wrong submissions count down 4, 3, 2, 1.
	for i, want := range []int{4, 3, 2, 1} {
		_, err := env.otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: "000000"}, "203.0.113.9", "ua")
		var attempt *domain.OTPAttemptError
		if !errors.As(err, &attempt) {
			t.Fatalf("attempt %d: expected OTPAttemptError, got %v", i+1, err)
		}
		if attempt.Remaining != want {
			t.Fatalf("attempt %d: remaining = %d, want %d", i+1, attempt.Remaining, want)
		}
	}

	// The fifth wrong submission locks the account and reports the lock.
	_, err = env.otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: "000000"}, "203.0.113.9", "ua")
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("fifth attempt: expected LockedError, got %v", err)
	}
	if locked.ExpiresAt == nil {
		t.Fatal("lock should carry an expiry")
	}
	if u := env.reloadUser(t, user.ID); !u.IsLocked || u.LockoutExpiresAt == nil {
		t.Fatal("lock not persisted")
	}

	// Even the correct code is refused while locked.
	_, err = env.otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: "111111"}, "203.0.113.9", "ua")
	if !errors.As(err, &locked) {
		t.Fatalf("locked account accepted a code: %v", err)
	}

	// Once the lockout window elapses the next access lazily unlocks.
	past := time.Now().UTC().Add(-time.Minute)
	if err := env.db.Model(&domain.User{}).Where("id = ?", user.ID).Update("lockout_expires_at", past).Error; err != nil {
		t.Fatalf("expire lock: %v", err)
	}
	authed, err := env.otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: "111111"}, "203.0.113.9", "ua")
	if err != nil {
		t.Fatalf("verify after lock expiry: %v", err)
	}
	if authed.ID != user.ID.String() {
		t.Fatalf("unexpected identity %s", authed.ID)
	}
	if u := env.reloadUser(t, user.ID); u.IsLocked || u.LockoutExpiresAt != nil {
		t.Fatal("auto-unlock not persisted")
	}
	if n := env.otpCount(t, user.ID); n != 0 {
		t.Fatalf("expected OTP ledger cleared after login, found %d rows", n)
	}

	types := env.auditEvents(t, user.ID)
	for _, want := range []domain.AuditEventType{
		domain.AuditOTPSent,
		domain.AuditOTPFailed,
		domain.AuditAccountLocked,
		domain.AuditAccountUnlocked,
		domain.AuditOTPVerified,
		domain.AuditLoginSuccess,
	} {
		if !hasEvent(types, want) {
			t.Fatalf("audit trail missing %s (have %v)", want, types)
		}
	}
}

func TestRequestOTPThrottled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "5550001111"

	if _, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	user, _ := env.st.Users().GetByPhoneNumber(ctx, phone)

	_, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua")
	var limited *domain.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfter < 1 || limited.RetryAfter > 60 {
		t.Fatalf("retry-after %d out of range", limited.RetryAfter)
	}

	env.backdateOTP(t, user.ID, 30*time.Second)
	_, err = env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua")
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError at 30s, got %v", err)
	}
	if limited.RetryAfter != 30 {
		t.Fatalf("retry-after = %d, want 30", limited.RetryAfter)
	}

	// Past the window a new code replaces the old one.
	env.backdateOTP(t, user.ID, 61*time.Second)
	if _, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua"); err != nil {
		t.Fatalf("request after window: %v", err)
	}
	if n := env.otpCount(t, user.ID); n != 1 {
		t.Fatalf("expected exactly one outstanding code, got %d", n)
	}
}

func TestNewOTPSupersedesOld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "5552223333"

	if _, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	user, _ := env.st.Users().GetByPhoneNumber(ctx, phone)
	env.setOTPCode(t, user.ID, "111111")
	env.backdateOTP(t, user.ID, 61*time.Second)

	if _, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	env.setOTPCode(t, user.ID, "222222")

	// The superseded code no longer matches anything.
	_, err := env.otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: "111111"}, "ip", "ua")
	var attempt *domain.OTPAttemptError
	if !errors.As(err, &attempt) {
		t.Fatalf("expected old code to fail, got %v", err)
	}
}

func TestExpiredOTPDoesNotChargeAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "5554445555"

	if _, err := env.otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua"); err != nil {
		t.Fatalf("request: %v", err)
	}
	user, _ := env.st.Users().GetByPhoneNumber(ctx, phone)
	env.setOTPCode(t, user.ID, "111111")
	env.expireOTP(t, user.ID)

	// Correct code, expired record: expiry wins and the counter stays put.
	_, err := env.otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: "111111"}, "ip", "ua")
	if !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}

	var rec domain.OTPRecord
	if err := env.db.Where("user_id = ?", user.ID).First(&rec).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", rec.Attempts)
	}
}

func TestVerifyOTPUnknownPhone(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.otp.VerifyOTP(context.Background(), dto.OTPVerifyRequest{PhoneNumber: "5559990000", OTP: "123456"}, "ip", "ua")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

// ====== Local login ======

func TestLocalLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, err := env.pw.Hash("Str0ng!Pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	email := "admin@johri.example"
	user := env.createUser(t, &domain.User{
		Username:     "admin",
		Email:        &email,
		PasswordHash: &hash,
		Role:         domain.RoleOwner,
	})

	// Leftover OTP rows must disappear on a successful login.
	if err := env.st.OTPs().Create(ctx, &domain.OTPRecord{
		UserID:    user.ID,
		Code:      "999999",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}); err != nil {
		t.Fatalf("seed otp: %v", err)
	}

	if _, err := env.auth.AuthenticateLocal(ctx, dto.LoginRequest{Username: "admin", Password: "wrong"}, "ip", "ua"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if u := env.reloadUser(t, user.ID); u.IsLocked {
		t.Fatal("password failures must never lock the account")
	}

	authed, err := env.auth.AuthenticateLocal(ctx, dto.LoginRequest{Username: "admin", Password: "Str0ng!Pass"}, "ip", "ua")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if authed.ID != user.ID.String() || authed.Role != domain.RoleOwner {
		t.Fatalf("unexpected identity %+v", authed)
	}
	if n := env.otpCount(t, user.ID); n != 0 {
		t.Fatalf("residual OTP rows after login: %d", n)
	}

	types := env.auditEvents(t, user.ID)
	if !hasEvent(types, domain.AuditLoginFailed) || !hasEvent(types, domain.AuditLoginSuccess) {
		t.Fatalf("expected login_failed and login_success in audit trail, have %v", types)
	}
}

func TestLocalLoginUnknownUserIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.AuthenticateLocal(context.Background(), dto.LoginRequest{Username: "ghost", Password: "x"}, "ip", "ua")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLocalLoginLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, _ := env.pw.Hash("Str0ng!Pass")
	future := time.Now().UTC().Add(10 * time.Minute)
	user := env.createUser(t, &domain.User{
		Username:         "lockedadmin",
		PasswordHash:     &hash,
		Role:             domain.RoleAdmin,
		IsLocked:         true,
		LockoutExpiresAt: &future,
	})

	_, err := env.auth.AuthenticateLocal(ctx, dto.LoginRequest{Username: "lockedadmin", Password: "Str0ng!Pass"}, "ip", "ua")
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError, got %v", err)
	}
	if locked.ExpiresAt == nil {
		t.Fatal("expected expiry detail on the lock message")
	}

	// Expired lock: login proceeds and the unlock is persisted.
	past := time.Now().UTC().Add(-time.Minute)
	if err := env.db.Model(&domain.User{}).Where("id = ?", user.ID).Update("lockout_expires_at", past).Error; err != nil {
		t.Fatalf("expire lock: %v", err)
	}
	if _, err := env.auth.AuthenticateLocal(ctx, dto.LoginRequest{Username: "lockedadmin", Password: "Str0ng!Pass"}, "ip", "ua"); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if u := env.reloadUser(t, user.ID); u.IsLocked || u.LockoutExpiresAt != nil {
		t.Fatal("auto-unlock not persisted")
	}
}

// ====== OAuth login ======

func TestOAuthLoginProvisionsAndLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := dto.OAuthLoginRequest{Provider: "google", SubjectID: "google-sub-1", Email: "viewer@gmail.example", Name: "Vera Viewer"}
	first, err := env.auth.AuthenticateOAuth(ctx, req, "ip", "ua")
	if err != nil {
		t.Fatalf("first oauth login: %v", err)
	}
	if first.Role != domain.RoleViewer {
		t.Fatalf("provisioned role = %s, want Viewer", first.Role)
	}

	second, err := env.auth.AuthenticateOAuth(ctx, req, "ip", "ua")
	if err != nil {
		t.Fatalf("second oauth login: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("repeat login created a second account")
	}

	// An existing email account gets the subject linked instead of duplicated.
	email := "linked@johri.example"
	existing := env.createUser(t, &domain.User{Username: "linked", Email: &email, Role: domain.RoleAdmin})
	linked, err := env.auth.AuthenticateOAuth(ctx, dto.OAuthLoginRequest{Provider: "google", SubjectID: "google-sub-2", Email: email}, "ip", "ua")
	if err != nil {
		t.Fatalf("link oauth login: %v", err)
	}
	if linked.ID != existing.ID.String() {
		t.Fatal("expected link to the existing account")
	}
	if u := env.reloadUser(t, existing.ID); u.GoogleID == nil || *u.GoogleID != "google-sub-2" {
		t.Fatal("google id not persisted on link")
	}
}

func TestOAuthLoginLockedRejected(t *testing.T) {
	env := newTestEnv(t)
	email := "locked@gmail.example"
	gid := "google-sub-locked"
	env.createUser(t, &domain.User{Username: "lockedviewer", Email: &email, GoogleID: &gid, Role: domain.RoleViewer, IsLocked: true})

	_, err := env.auth.AuthenticateOAuth(context.Background(), dto.OAuthLoginRequest{Provider: "google", SubjectID: gid, Email: email}, "ip", "ua")
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError, got %v", err)
	}
}

// ====== Password reset ======

func TestPasswordResetEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, _ := env.pw.Hash("Old-Passw0rd!")
	email := "boss@johri.example"
	owner := env.createUser(t, &domain.User{
		Username:     "boss",
		Email:        &email,
		PasswordHash: &hash,
		Role:         domain.RoleOwner,
	})

	res, err := env.reset.Initiate(ctx, dto.ResetInitiateRequest{Identifier: email}, "ip", "ua")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if res.Message != "OTP has been sent to your registered email address." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	code := env.notifier.lastCode()
	if len(code) != 6 {
		t.Fatalf("captured code %q", code)
	}

	// Wrong code walks the ladder.
	_, err = env.reset.VerifyOTP(ctx, dto.ResetVerifyRequest{Identifier: email, OTP: "000000"}, "ip", "ua")
	var attempt *domain.OTPAttemptError
	if !errors.As(err, &attempt) || attempt.Remaining != 4 {
		t.Fatalf("expected 4 remaining, got %v", err)
	}

	verify, err := env.reset.VerifyOTP(ctx, dto.ResetVerifyRequest{Identifier: email, OTP: code}, "ip", "ua")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verify.Token == "" {
		t.Fatal("expected a reset token")
	}

	// Fabricated tokens matching the legacy shape are rejected outright.
	err = env.reset.Reset(ctx, dto.ResetPasswordRequest{
		Identifier:      email,
		Token:           fmt.Sprintf("otp_verified_%s_%d", owner.ID, time.Now().UnixMilli()),
		NewPassword:     "New-Passw0rd!",
		ConfirmPassword: "New-Passw0rd!",
	}, "ip", "ua")
	if !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}

	// Weak password reports every violated rule.
	err = env.reset.Reset(ctx, dto.ResetPasswordRequest{Identifier: email, Token: verify.Token, NewPassword: "abc", ConfirmPassword: "abc"}, "ip", "ua")
	var policyErr *domain.PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError, got %v", err)
	}
	if len(policyErr.Violations) != 4 {
		t.Fatalf("expected 4 violations for %q, got %v", "abc", policyErr.Violations)
	}

	// Confirmation mismatch is a validation failure too.
	err = env.reset.Reset(ctx, dto.ResetPasswordRequest{Identifier: email, Token: verify.Token, NewPassword: "New-Passw0rd!", ConfirmPassword: "Other-Passw0rd!"}, "ip", "ua")
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError on mismatch, got %v", err)
	}

	if err := env.reset.Reset(ctx, dto.ResetPasswordRequest{Identifier: email, Token: verify.Token, NewPassword: "New-Passw0rd!", ConfirmPassword: "New-Passw0rd!"}, "ip", "ua"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	u := env.reloadUser(t, owner.ID)
	if u.IsLocked || u.LockoutExpiresAt != nil {
		t.Fatal("reset must unlock the account")
	}
	if u.PasswordHash == nil {
		t.Fatal("password hash missing after reset")
	}
	if _, ok := env.pw.Verify("New-Passw0rd!", *u.PasswordHash); !ok {
		t.Fatal("new password does not verify")
	}
	if _, ok := env.pw.Verify("Old-Passw0rd!", *u.PasswordHash); ok {
		t.Fatal("old password still verifies")
	}
	if n := env.otpCount(t, owner.ID); n != 0 {
		t.Fatalf("OTP ledger not purged, %d rows", n)
	}
	if len(env.notifier.confirmations) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(env.notifier.confirmations))
	}
	if !hasEvent(env.auditEvents(t, owner.ID), domain.AuditResetSuccess) {
		t.Fatal("reset_success missing from audit trail")
	}
}

func TestResetInitiateRoleScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	email := "jeweler@johri.example"
	phone := "5557778888"
	env.createUser(t, &domain.User{Username: "jeweler1", Email: &email, PhoneNumber: &phone, Role: domain.RoleAdmin})

	ownerPhone := "5551112222"
	ownerEmail := "owner@johri.example"
	env.createUser(t, &domain.User{Username: "owner1", Email: &ownerEmail, PhoneNumber: &ownerPhone, Role: domain.RoleOwner})

	// Email identifiers are only valid for Owner accounts.
	_, err := env.reset.Initiate(ctx, dto.ResetInitiateRequest{Identifier: email}, "ip", "ua")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for non-Owner email, got %v", err)
	}

	// Phone identifiers are only valid for non-Owner accounts.
	_, err = env.reset.Initiate(ctx, dto.ResetInitiateRequest{Identifier: ownerPhone}, "ip", "ua")
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for Owner phone, got %v", err)
	}

	// The valid pairings go through.
	if _, err := env.reset.Initiate(ctx, dto.ResetInitiateRequest{Identifier: ownerEmail}, "ip", "ua"); err != nil {
		t.Fatalf("owner email initiate: %v", err)
	}
	if _, err := env.reset.Initiate(ctx, dto.ResetInitiateRequest{Identifier: phone}, "ip", "ua"); err != nil {
		t.Fatalf("jeweler phone initiate: %v", err)
	}
}

func TestResetTokenBoundToUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	email := "victim@johri.example"
	env.createUser(t, &domain.User{Username: "victim", Email: &email, Role: domain.RoleOwner})

	// Token legitimately issued, but for a different user.
	otherToken, err := env.tokens.Issue(uuid.New())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	err = env.reset.Reset(ctx, dto.ResetPasswordRequest{Identifier: email, Token: otherToken, NewPassword: "New-Passw0rd!", ConfirmPassword: "New-Passw0rd!"}, "ip", "ua")
	if !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken for mismatched subject, got %v", err)
	}
}

func TestResetInitiateLocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	email := "lockedowner@johri.example"
	future := time.Now().UTC().Add(10 * time.Minute)
	env.createUser(t, &domain.User{Username: "lockedowner", Email: &email, Role: domain.RoleOwner, IsLocked: true, LockoutExpiresAt: &future})

	_, err := env.reset.Initiate(ctx, dto.ResetInitiateRequest{Identifier: email}, "ip", "ua")
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError, got %v", err)
	}
}

// ====== Audit side channel ======

func TestAuditFailureNeverAltersOutcome(t *testing.T) {
	// A store without the audit table: every append fails, everything else
	// works. The flows must not notice.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.User{}, &domain.OTPRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	st := store.New(gdb)
	notifier := &captureNotifier{}
	audit := NewAuditRecorder(st)
	otp := NewOTPLoginServiceImpl(st, notifier, audit, OTPConfig{})

	ctx := context.Background()
	const phone = "5556667777"
	if _, err := otp.RequestOTP(ctx, dto.OTPRequest{PhoneNumber: phone}, "ip", "ua"); err != nil {
		t.Fatalf("request with broken audit: %v", err)
	}
	code := notifier.lastCode()
	if _, err := otp.VerifyOTP(ctx, dto.OTPVerifyRequest{PhoneNumber: phone, OTP: code}, "ip", "ua"); err != nil {
		t.Fatalf("verify with broken audit: %v", err)
	}
}
