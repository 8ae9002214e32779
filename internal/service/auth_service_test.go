package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
)

func newAuthFixture(t *testing.T, cfg *config.Config) (*AuthService, *memStore, *fakeOTPStore) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
		cfg.App.Env = "test"
		cfg.Auth.OTPTTLMinutes = 10
	}
	store := newMemStore()
	otp := newFakeOTPStore()
	svc := NewAuthService(AuthDependencies{
		AdminRepo:    &fakeAdminRepo{s: store},
		CustomerRepo: &fakeCustomerRepo{s: store},
		Tokens:       auth.NewTokenManager("test-secret", time.Hour),
		Hasher:       auth.NewPasswordHasher(4),
		OTPStore:     otp,
		Mailer:       NewLogMailer(cfg.Mail, zap.NewNop()),
		Config:       cfg,
		Logger:       zap.NewNop(),
	})
	return svc, store, otp
}

func TestAdminSignupAndSignin(t *testing.T) {
	svc, _, _ := newAuthFixture(t, nil)
	ctx := context.Background()

	admin, err := svc.SignupAdmin(ctx, AdminSignupInput{
		Name:     "Root Admin",
		Email:    "Root@Example.com",
		Password: "hunter22",
		Role:     domain.AdminRoleSuperadmin,
	})
	if err != nil {
		t.Fatal(err)
	}
	if admin.Email != "root@example.com" {
		t.Fatalf("email not lowercased: %s", admin.Email)
	}

	_, err = svc.SignupAdmin(ctx, AdminSignupInput{
		Name:     "Dup",
		Email:    "root@example.com",
		Password: "x",
		Role:     domain.AdminRoleManager,
	})
	if code := errorCode(t, err); code != "CONFLICT" {
		t.Fatalf("duplicate email code = %s, want CONFLICT", code)
	}

	signedIn, result, err := svc.SigninAdmin(ctx, "root@example.com", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if signedIn.ID != admin.ID || result.AccessToken == "" {
		t.Fatal("signin did not return token for created admin")
	}

	_, _, err = svc.SigninAdmin(ctx, "root@example.com", "wrong")
	if code := errorCode(t, err); code != "UNAUTHORIZED" {
		t.Fatalf("bad password code = %s, want UNAUTHORIZED", code)
	}
}

func TestCustomerSignupUpgradesUnregistered(t *testing.T) {
	svc, store, otp := newAuthFixture(t, nil)
	ctx := context.Background()
	walkIn := store.addCustomer("Pat", "pat@example.com")

	customer, err := svc.SignupCustomer(ctx, CustomerSignupInput{
		FirstName: "Patricia",
		Email:     "pat@example.com",
		Password:  "hunter22",
	})
	if err != nil {
		t.Fatal(err)
	}
	if customer.ID != walkIn.ID {
		t.Fatalf("signup created duplicate %s instead of upgrading %s", customer.ID, walkIn.ID)
	}
	if !customer.IsRegistered || customer.PasswordHash == nil {
		t.Fatal("existing account not upgraded to registered")
	}
	if len(otp.codes) != 1 {
		t.Fatal("signup must issue a verification code for unverified accounts")
	}

	_, err = svc.SignupCustomer(ctx, CustomerSignupInput{
		FirstName: "Again",
		Email:     "pat@example.com",
		Password:  "x",
	})
	if code := errorCode(t, err); code != "CONFLICT" {
		t.Fatalf("re-signup code = %s, want CONFLICT", code)
	}
}

func TestOTPFlow(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "development"
	cfg.Auth.OTPTTLMinutes = 10
	cfg.Auth.ExposeOTP = true
	svc, store, otp := newAuthFixture(t, cfg)
	ctx := context.Background()
	store.addCustomer("Pat", "pat@example.com")

	result, err := svc.RequestOTP(ctx, "pat@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if result.Code == "" {
		t.Fatal("dev environment with ExposeOTP must echo the code")
	}
	if len(result.Code) != 6 {
		t.Fatalf("code length = %d, want 6", len(result.Code))
	}

	wrong := "000000"
	if result.Code == wrong {
		wrong = "000001"
	}
	_, _, err = svc.VerifyOTP(ctx, "pat@example.com", wrong)
	if code := errorCode(t, err); code != "UNAUTHORIZED" {
		t.Fatalf("wrong code gives %s, want UNAUTHORIZED", code)
	}

	// wrong attempts must not consume the code
	customer, tokenResult, err := svc.VerifyOTP(ctx, "pat@example.com", result.Code)
	if err != nil {
		t.Fatal(err)
	}
	if !customer.IsVerified || !customer.IsRegistered {
		t.Fatal("verify must mark the customer verified and registered")
	}
	if tokenResult.AccessToken == "" {
		t.Fatal("verify must issue a token")
	}

	// the code is single use
	_, _, err = svc.VerifyOTP(ctx, "pat@example.com", result.Code)
	if code := errorCode(t, err); code != "UNAUTHORIZED" {
		t.Fatalf("replayed code gives %s, want UNAUTHORIZED", code)
	}
	if len(otp.codes) != 0 {
		t.Fatal("code not removed after use")
	}
}

func TestOTPHiddenInProduction(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "production"
	cfg.Auth.OTPTTLMinutes = 10
	cfg.Auth.ExposeOTP = true
	svc, store, _ := newAuthFixture(t, cfg)
	store.addCustomer("Pat", "pat@example.com")

	result, err := svc.RequestOTP(context.Background(), "pat@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if result.Code != "" {
		t.Fatal("production must never echo codes, even with ExposeOTP set")
	}
}

func TestRequestOTPUnknownEmailIsSilent(t *testing.T) {
	svc, _, otp := newAuthFixture(t, nil)
	result, err := svc.RequestOTP(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if result.Code != "" || len(otp.codes) != 0 {
		t.Fatal("unknown email must not issue a code")
	}
}

func TestChangeAdminPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t, nil)
	ctx := context.Background()
	admin, err := svc.SignupAdmin(ctx, AdminSignupInput{
		Name:     "Root",
		Email:    "root@example.com",
		Password: "oldpass",
		Role:     domain.AdminRoleSuperadmin,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ChangeAdminPassword(ctx, admin.ID, "wrong", "newpass"); err == nil {
		t.Fatal("wrong current password must fail")
	}
	if err := svc.ChangeAdminPassword(ctx, admin.ID, "oldpass", "newpass"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.SigninAdmin(ctx, "root@example.com", "newpass"); err != nil {
		t.Fatalf("signin with rotated password failed: %v", err)
	}
}
