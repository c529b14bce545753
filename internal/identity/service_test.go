package identity

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/entity"
)

// In-memory repositories for service tests.

type mockOwnerRepo struct {
	owners map[string]*Owner
}

func newMockOwnerRepo() *mockOwnerRepo {
	return &mockOwnerRepo{owners: map[string]*Owner{}}
}

func (m *mockOwnerRepo) Create(ctx context.Context, o *Owner) error {
	m.owners[o.ID] = o
	return nil
}

func (m *mockOwnerRepo) GetByID(ctx context.Context, id string) (*Owner, error) {
	o, ok := m.owners[id]
	if !ok {
		return nil, ErrOwnerNotFound
	}
	return o, nil
}

func (m *mockOwnerRepo) GetByEmail(ctx context.Context, email string) (*Owner, error) {
	for _, o := range m.owners {
		if o.Email == email {
			return o, nil
		}
	}
	return nil, ErrOwnerNotFound
}

func (m *mockOwnerRepo) Update(ctx context.Context, o *Owner) error {
	m.owners[o.ID] = o
	return nil
}

func (m *mockOwnerRepo) UpdateLockout(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	o, ok := m.owners[id]
	if !ok {
		return ErrOwnerNotFound
	}
	o.FailedLoginAttempts = failedAttempts
	o.LockedUntil = lockedUntil
	return nil
}

func (m *mockOwnerRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	o, ok := m.owners[id]
	if !ok {
		return ErrOwnerNotFound
	}
	o.PasswordHash = passwordHash
	return nil
}

type mockCredRepo struct {
	creds map[string]*MemberCredential
}

func newMockCredRepo() *mockCredRepo {
	return &mockCredRepo{creds: map[string]*MemberCredential{}}
}

func (m *mockCredRepo) Set(ctx context.Context, c *MemberCredential) error {
	m.creds[c.Email] = c
	return nil
}

func (m *mockCredRepo) GetByEmail(ctx context.Context, email string) (*MemberCredential, error) {
	c, ok := m.creds[email]
	if !ok {
		return nil, ErrOwnerNotFound
	}
	return c, nil
}

type mockMemberSource struct {
	members map[string]*entity.TeamMember
}

func (m *mockMemberSource) GetTeamMember(ctx context.Context, id string) (*entity.TeamMember, error) {
	tm, ok := m.members[id]
	if !ok {
		return nil, fmt.Errorf("team member %s: %w", id, access.ErrNotFound)
	}
	return tm, nil
}

type seedRecorder struct {
	seeded []string
}

func (s *seedRecorder) SeedDefaults(ctx context.Context, ownerID string) error {
	s.seeded = append(s.seeded, ownerID)
	return nil
}

type testEnv struct {
	svc     *Service
	tokens  *TokenManager
	owners  *mockOwnerRepo
	creds   *mockCredRepo
	members *mockMemberSource
	seeder  *seedRecorder
}

func newTestEnv() *testEnv {
	owners := newMockOwnerRepo()
	creds := newMockCredRepo()
	members := &mockMemberSource{members: map[string]*entity.TeamMember{}}
	seeder := &seedRecorder{}
	// Minimal argon2 parameters keep the suite fast.
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)
	tokens := NewTokenManager([]byte("test-secret-0123456789"), time.Hour, owners, members)
	svc := NewService(owners, creds, members, hasher, tokens, seeder, audit.NewSlogLogger(), 3, 15*time.Minute)
	return &testEnv{svc: svc, tokens: tokens, owners: owners, creds: creds, members: members, seeder: seeder}
}

// TestPurpose: Validates that registration creates an owner, normalizes the email, and seeds the tenant's default roles exactly once.
// Scope: Unit Test
// Security: Initialization Integrity
// Expected: Owner persisted with lowercase email; seeder invoked with the new owner id.
// Test Case ID: IDN-01
func TestService_Register(t *testing.T) {
	env := newTestEnv()

	owner, err := env.svc.Register(context.Background(), RegisterInput{
		Name: "Grace", Email: "Grace@Example.com", Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if owner.Email != "grace@example.com" {
		t.Errorf("email not normalized: %q", owner.Email)
	}
	if len(env.seeder.seeded) != 1 || env.seeder.seeded[0] != owner.ID {
		t.Errorf("expected default roles seeded for %s, got %v", owner.ID, env.seeder.seeded)
	}
	if owner.PasswordHash == "" || strings.Contains(owner.PasswordHash, "hunter2") {
		t.Error("password not hashed")
	}
}

// TestPurpose: Validates that a second registration with the same email is rejected.
// Scope: Unit Test
// Security: Account Integrity
// Expected: ErrEmailTaken.
// Test Case ID: IDN-02
func TestService_Register_EmailTaken(t *testing.T) {
	env := newTestEnv()
	in := RegisterInput{Name: "Grace", Email: "grace@example.com", Password: "hunter2hunter2"}

	if _, err := env.svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := env.svc.Register(context.Background(), in); err != ErrEmailTaken {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

// TestPurpose: Validates the owner login round trip: a valid password yields a token whose resolved principal matches the owner.
// Scope: Unit Test
// Security: Authentication
// Expected: Token resolves to an owner principal with the registered id.
// Test Case ID: IDN-03
func TestService_Login_Owner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner, err := env.svc.Register(ctx, RegisterInput{
		Name: "Grace", Email: "grace@example.com", Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, err := env.svc.Login(ctx, "grace@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	p, err := env.tokens.ResolvePrincipal(ctx, token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.Kind != access.KindOwner || p.ID != owner.ID {
		t.Errorf("unexpected principal %+v", p)
	}
}

// TestPurpose: Validates the lockout ladder: repeated failed logins lock the account even when the correct password follows.
// Scope: Unit Test
// Security: Brute-Force Protection
// Expected: After three failures the account is locked and a correct password returns ErrAccountLocked.
// Test Case ID: IDN-04
func TestService_Login_Lockout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if _, err := env.svc.Register(ctx, RegisterInput{
		Name: "Grace", Email: "grace@example.com", Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.svc.Login(ctx, "grace@example.com", "wrong-password"); err != ErrInvalidCredentials {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := env.svc.Login(ctx, "grace@example.com", "hunter2hunter2"); err != ErrAccountLocked {
		t.Errorf("expected ErrAccountLocked, got %v", err)
	}
}

// TestPurpose: Validates that a team member logs in through stored credentials and resolves to a member principal bound to their managing tenant.
// Scope: Unit Test
// Security: Authentication and Tenant Binding
// Expected: Token resolves to a team member principal carrying the store's current role and status.
// Test Case ID: IDN-05
func TestService_Login_Member(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.members.members["m-1"] = &entity.TeamMember{
		ID: "m-1", ManagedBy: "owner-1", RoleID: "r-1", Status: entity.MemberActive,
	}
	if err := env.svc.SetMemberPassword(ctx, "m-1", "ada@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("SetMemberPassword: %v", err)
	}

	token, err := env.svc.Login(ctx, "ada@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	p, err := env.tokens.ResolvePrincipal(ctx, token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.Kind != access.KindTeamMember || p.ManagedBy != "owner-1" || p.RoleID != "r-1" {
		t.Errorf("unexpected principal %+v", p)
	}
}

// TestPurpose: Validates that token verification reflects store state, not token contents: a member deactivated after login resolves with the new status.
// Scope: Unit Test
// Security: Revocation Semantics
// Expected: Principal status follows the store, and a deleted member's token stops resolving entirely.
// Test Case ID: IDN-06
func TestTokenManager_FreshState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.members.members["m-1"] = &entity.TeamMember{
		ID: "m-1", ManagedBy: "owner-1", RoleID: "r-1", Status: entity.MemberActive,
	}
	if err := env.svc.SetMemberPassword(ctx, "m-1", "ada@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("SetMemberPassword: %v", err)
	}
	token, err := env.svc.Login(ctx, "ada@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	env.members.members["m-1"].Status = entity.MemberInactive
	p, err := env.tokens.ResolvePrincipal(ctx, token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.Status != access.StatusInactive {
		t.Errorf("expected inactive status from store, got %q", p.Status)
	}

	delete(env.members.members, "m-1")
	if _, err := env.tokens.ResolvePrincipal(ctx, token); err != access.ErrUnauthenticated {
		t.Errorf("expected ErrUnauthenticated for deleted member, got %v", err)
	}
}

// TestPurpose: Validates that tampered or unsigned tokens are rejected uniformly.
// Scope: Unit Test
// Security: Token Integrity (CWE-345)
// Expected: ErrUnauthenticated for garbage, truncated, and foreign-key tokens.
// Test Case ID: IDN-07
func TestTokenManager_RejectsBadTokens(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner, err := env.svc.Register(ctx, RegisterInput{
		Name: "Grace", Email: "grace@example.com", Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	foreign := NewTokenManager([]byte("some-other-secret-value"), time.Hour, env.owners, env.members)
	forged, err := foreign.Issue(&access.Principal{Kind: access.KindOwner, ID: owner.ID})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, raw := range []string{"", "not-a-token", "a.b.c", forged} {
		if _, err := env.tokens.ResolvePrincipal(ctx, raw); err != access.ErrUnauthenticated {
			t.Errorf("token %q: expected ErrUnauthenticated, got %v", raw, err)
		}
	}
}

// TestPurpose: Validates that an owner flagged as platform admin resolves to an admin principal without the token encoding the flag.
// Scope: Unit Test
// Security: Privilege Derivation
// Expected: Flipping the account flag changes the resolved kind for an already issued token.
// Test Case ID: IDN-08
func TestTokenManager_AdminFlagFromStore(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner, err := env.svc.Register(ctx, RegisterInput{
		Name: "Grace", Email: "grace@example.com", Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := env.svc.Login(ctx, "grace@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	p, err := env.tokens.ResolvePrincipal(ctx, token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.Kind != access.KindOwner {
		t.Fatalf("expected owner before promotion, got %q", p.Kind)
	}

	env.owners.owners[owner.ID].IsAdmin = true
	p, err = env.tokens.ResolvePrincipal(ctx, token)
	if err != nil {
		t.Fatalf("ResolvePrincipal after promotion: %v", err)
	}
	if p.Kind != access.KindAdmin {
		t.Errorf("expected admin after promotion, got %q", p.Kind)
	}
}

// TestPurpose: Validates password hashing round trip and rejection of wrong passwords.
// Scope: Unit Test
// Security: Credential Storage (CWE-916)
// Expected: Hash verifies its own password and rejects others; output carries argon2id parameters.
// Test Case ID: IDN-09
func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)

	hash, err := hasher.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format: %q", hash)
	}

	ok, err := hasher.Verify("correct-horse-battery-staple", hash)
	if err != nil || !ok {
		t.Errorf("expected verification to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("wrong", hash)
	if err != nil || ok {
		t.Errorf("expected verification to fail cleanly, ok=%v err=%v", ok, err)
	}

	if _, err := hasher.Verify("x", "$plaintext$nope"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
