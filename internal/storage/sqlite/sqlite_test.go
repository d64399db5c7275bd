package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rachajunto/backend/internal/membership"
	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
	"github.com/rachajunto/backend/internal/settlement"
	"github.com/rachajunto/backend/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *Store, email, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Name:         username,
		Username:     username,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

func createTestGroup(t *testing.T, store *Store, ownerID string) *models.Group {
	t.Helper()
	group := &models.Group{
		Name:       "Republica",
		Visibility: models.VisibilityPublic,
		OwnerID:    ownerID,
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return group
}

func createTestPool(t *testing.T, store *Store, groupID, creatorID string, totalCents int64) *models.FinancialPool {
	t.Helper()
	total, err := money.FromCents(totalCents)
	if err != nil {
		t.Fatalf("FromCents(%d): %v", totalCents, err)
	}
	pool := &models.FinancialPool{
		GroupID:     groupID,
		CreatedBy:   creatorID,
		Title:       "Internet",
		PoolType:    models.PoolTypeOneTime,
		TotalAmount: total,
	}
	if err := store.CreatePool(context.Background(), pool); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	return pool
}

func TestCreateUserUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createTestUser(t, store, "alice@example.com", "alice")

	dup := &models.User{Email: "alice@example.com", PasswordHash: "x", Name: "Alice 2", Username: "alice2"}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	dup = &models.User{Email: "other@example.com", PasswordHash: "x", Name: "Alice 2", Username: "alice"}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestCreateGroupWritesOwnerMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "alice@example.com", "alice")
	group := createTestGroup(t, store, owner.ID)

	member, err := store.GetMember(ctx, group.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if member.Role != models.RoleOwner || !member.Active {
		t.Errorf("owner membership = %+v, want active owner", member)
	}

	groups, err := store.ListGroupsForUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListGroupsForUser: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Errorf("ListGroupsForUser = %v, want the created group", groups)
	}
}

func TestMembershipLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "alice@example.com", "alice")
	bruno := createTestUser(t, store, "bruno@example.com", "bruno")
	group := createTestGroup(t, store, owner.ID)

	joined, err := store.JoinGroup(ctx, group.ID, bruno.ID)
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if joined.Role != models.RoleMember {
		t.Errorf("joined role = %s, want member", joined.Role)
	}

	if _, err := store.JoinGroup(ctx, group.ID, bruno.ID); !errors.Is(err, membership.ErrAlreadyMember) {
		t.Errorf("second join error = %v, want ErrAlreadyMember", err)
	}

	promoted, err := store.PromoteMember(ctx, group.ID, owner.ID, bruno.ID)
	if err != nil {
		t.Fatalf("PromoteMember: %v", err)
	}
	if promoted.Role != models.RoleAdmin {
		t.Errorf("promoted role = %s, want admin", promoted.Role)
	}

	// A non-owner cannot demote.
	if _, err := store.DemoteMember(ctx, group.ID, bruno.ID, bruno.ID); !errors.Is(err, membership.ErrForbidden) {
		t.Errorf("demote by admin error = %v, want ErrForbidden", err)
	}

	if err := store.RemoveMember(ctx, group.ID, owner.ID, bruno.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	removed, err := store.GetMember(ctx, group.ID, bruno.ID)
	if err != nil {
		t.Fatalf("GetMember after removal: %v", err)
	}
	if removed.Active || removed.LeftAt == 0 {
		t.Errorf("removed member = %+v, want inactive with LeftAt set", removed)
	}

	// Removed members do not show up in the active listing.
	members, err := store.ListMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 1 || members[0].UserID != owner.ID {
		t.Errorf("ListMembers = %v, want only the owner", members)
	}

	// And they can rejoin as plain members.
	rejoined, err := store.JoinGroup(ctx, group.ID, bruno.ID)
	if err != nil {
		t.Fatalf("JoinGroup after removal: %v", err)
	}
	if rejoined.Role != models.RoleMember || !rejoined.Active {
		t.Errorf("rejoined member = %+v, want active member", rejoined)
	}
}

func TestJoinPoolRebalancesShares(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "alice@example.com", "alice")
	bruno := createTestUser(t, store, "bruno@example.com", "bruno")
	carla := createTestUser(t, store, "carla@example.com", "carla")
	group := createTestGroup(t, store, owner.ID)
	pool := createTestPool(t, store, group.ID, owner.ID, 850)

	for _, u := range []*models.User{owner, bruno, carla} {
		if _, err := store.JoinPool(ctx, pool.ID, u.ID); err != nil {
			t.Fatalf("JoinPool(%s): %v", u.Username, err)
		}
	}

	participants, err := store.ListParticipants(ctx, pool.ID)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("got %d participants, want 3", len(participants))
	}

	var sum int64
	for _, p := range participants {
		sum += p.ShareAmount.Cents()
	}
	if sum != 850 {
		t.Errorf("shares sum to %d, want 850", sum)
	}
	// First joiner carries the remainder cent.
	if participants[0].UserID != owner.ID || participants[0].ShareAmount.Cents() != 284 {
		t.Errorf("first participant = %s with %d cents, want %s with 284",
			participants[0].UserID, participants[0].ShareAmount.Cents(), owner.ID)
	}

	if _, err := store.JoinPool(ctx, pool.ID, bruno.ID); !errors.Is(err, settlement.ErrDuplicateParticipant) {
		t.Errorf("duplicate JoinPool error = %v, want ErrDuplicateParticipant", err)
	}
}

func TestMarkParticipantPaidAdvancesStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "alice@example.com", "alice")
	bruno := createTestUser(t, store, "bruno@example.com", "bruno")
	group := createTestGroup(t, store, owner.ID)
	pool := createTestPool(t, store, group.ID, owner.ID, 48000)

	for _, u := range []*models.User{owner, bruno} {
		if _, err := store.JoinPool(ctx, pool.ID, u.ID); err != nil {
			t.Fatalf("JoinPool(%s): %v", u.Username, err)
		}
	}

	paid, err := store.MarkParticipantPaid(ctx, pool.ID, owner.ID)
	if err != nil {
		t.Fatalf("MarkParticipantPaid: %v", err)
	}
	if !paid.HasPaid || paid.PaidAt == 0 {
		t.Errorf("paid participant = %+v, want HasPaid with PaidAt", paid)
	}

	got, err := store.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if got.Status != models.PoolStatusActive {
		t.Errorf("status after first payment = %s, want active", got.Status)
	}

	if _, err := store.MarkParticipantPaid(ctx, pool.ID, owner.ID); !errors.Is(err, settlement.ErrAlreadyPaid) {
		t.Errorf("second payment error = %v, want ErrAlreadyPaid", err)
	}

	if _, err := store.MarkParticipantPaid(ctx, pool.ID, bruno.ID); err != nil {
		t.Fatalf("MarkParticipantPaid(bruno): %v", err)
	}
	got, err = store.GetPool(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if got.Status != models.PoolStatusCompleted {
		t.Errorf("status after all payments = %s, want completed", got.Status)
	}

	// A completed pool rejects new joins.
	carla := createTestUser(t, store, "carla@example.com", "carla")
	if _, err := store.JoinPool(ctx, pool.ID, carla.ID); !errors.Is(err, settlement.ErrPoolClosed) {
		t.Errorf("join on completed pool error = %v, want ErrPoolClosed", err)
	}
}

func TestWalletBalanceAndWithdrawals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "alice@example.com", "alice")
	bruno := createTestUser(t, store, "bruno@example.com", "bruno")
	group := createTestGroup(t, store, owner.ID)
	pool := createTestPool(t, store, group.ID, owner.ID, 10000)

	for _, u := range []*models.User{owner, bruno} {
		if _, err := store.JoinPool(ctx, pool.ID, u.ID); err != nil {
			t.Fatalf("JoinPool(%s): %v", u.Username, err)
		}
	}
	if _, err := store.MarkParticipantPaid(ctx, pool.ID, bruno.ID); err != nil {
		t.Fatalf("MarkParticipantPaid: %v", err)
	}

	balance, err := store.WalletBalance(ctx, owner.ID)
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if balance.Cents() != 5000 {
		t.Errorf("balance = %d cents, want 5000", balance.Cents())
	}

	amount, _ := money.FromCents(3000)
	withdrawal := &models.Withdrawal{UserID: owner.ID, Amount: amount, DestinationKey: "alice@pix"}
	if err := store.CreateWithdrawal(ctx, withdrawal); err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}

	balance, err = store.WalletBalance(ctx, owner.ID)
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if balance.Cents() != 2000 {
		t.Errorf("balance after withdrawal = %d cents, want 2000", balance.Cents())
	}

	tooMuch, _ := money.FromCents(2001)
	over := &models.Withdrawal{UserID: owner.ID, Amount: tooMuch, DestinationKey: "alice@pix"}
	if err := store.CreateWithdrawal(ctx, over); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Errorf("overdraw error = %v, want ErrInsufficientBalance", err)
	}

	withdrawals, err := store.ListWithdrawals(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListWithdrawals: %v", err)
	}
	if len(withdrawals) != 1 || withdrawals[0].Amount.Cents() != 3000 {
		t.Errorf("ListWithdrawals = %v, want one 3000-cent entry", withdrawals)
	}
}

func TestProfileUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "alice")
	createTestUser(t, store, "bruno@example.com", "bruno")

	updated, err := store.UpdateProfile(ctx, alice.ID, "Alice Souza", "alicesouza", "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Alice Souza" || updated.Username != "alicesouza" {
		t.Errorf("UpdateProfile = %+v, want new name and username", updated)
	}

	if _, err := store.UpdateProfile(ctx, alice.ID, "Alice", "bruno", ""); !errors.Is(err, storage.ErrUsernameTaken) {
		t.Errorf("username collision error = %v, want ErrUsernameTaken", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "alice@example.com", "alice")
	total, err := money.FromCents(1000)
	if err != nil {
		t.Fatalf("FromCents: %v", err)
	}

	// Enforcement is per-connection state carried in the DSN, so it must
	// hold no matter which pooled connection serves the insert.
	for i := 0; i < 5; i++ {
		pool := &models.FinancialPool{
			GroupID:     "no-such-group",
			CreatedBy:   user.ID,
			Title:       "Orfao",
			PoolType:    models.PoolTypeOneTime,
			TotalAmount: total,
		}
		if err := store.CreatePool(ctx, pool); err == nil {
			t.Fatalf("attempt %d: CreatePool with unknown group succeeded, want foreign key error", i)
		}
	}
}
