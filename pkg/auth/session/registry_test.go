package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

func seedUsers(t *testing.T, client *db.Client, emails ...string) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, len(emails))
	for _, email := range emails {
		user := models.User{Name: email, Email: email, PasswordHash: "x"}
		if err := client.DB().Create(&user).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		ids = append(ids, user.ID)
	}
	return ids
}

func newStoreRegistry(t *testing.T, client *db.Client) *StoreRegistry {
	t.Helper()
	reg, err := NewStoreRegistry(client.DB())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func TestRegistryBumpIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	client := dbtest.New(t)
	ids := seedUsers(t, client, "a@jwt.com", "b@jwt.com")
	reg := newStoreRegistry(t, client)

	gen, err := reg.Current(ctx, ids[0])
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if gen != 0 {
		t.Fatalf("expected initial generation 0, got %d", gen)
	}

	bumped, err := reg.Bump(ctx, ids[0])
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if bumped != 1 {
		t.Fatalf("expected generation 1 after bump, got %d", bumped)
	}

	if gen, _ := reg.Current(ctx, ids[0]); gen != 1 {
		t.Fatalf("expected current generation 1, got %d", gen)
	}
	if gen, _ := reg.Current(ctx, ids[1]); gen != 0 {
		t.Fatalf("unrelated user should stay at 0, got %d", gen)
	}
}

func TestRegistryGenerationSurvivesNewRegistry(t *testing.T) {
	ctx := context.Background()
	client := dbtest.New(t)
	ids := seedUsers(t, client, "a@jwt.com")

	if _, err := newStoreRegistry(t, client).Bump(ctx, ids[0]); err != nil {
		t.Fatalf("bump: %v", err)
	}
	gen, err := newStoreRegistry(t, client).Current(ctx, ids[0])
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if gen != 1 {
		t.Fatalf("expected persisted generation 1, got %d", gen)
	}
}

func TestRegistryConcurrentBumpsAreNotLost(t *testing.T) {
	ctx := context.Background()
	client := dbtest.NewSerial(t)
	ids := seedUsers(t, client, "a@jwt.com")
	reg := newStoreRegistry(t, client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Bump(ctx, ids[0]); err != nil {
				t.Errorf("bump: %v", err)
			}
		}()
	}
	wg.Wait()
	if gen, _ := reg.Current(ctx, ids[0]); gen != 20 {
		t.Fatalf("expected 20 bumps to be recorded, got %d", gen)
	}
}

func TestRegistryUnknownUser(t *testing.T) {
	ctx := context.Background()
	reg := newStoreRegistry(t, dbtest.New(t))

	gen, err := reg.Current(ctx, 404)
	if err != nil || gen != 0 {
		t.Fatalf("expected 0 for a missing user, got %d, %v", gen, err)
	}
	if _, err := reg.Bump(ctx, 404); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestRegistryRejectsZeroUser(t *testing.T) {
	ctx := context.Background()
	reg := newStoreRegistry(t, dbtest.New(t))
	if _, err := reg.Current(ctx, 0); err == nil {
		t.Fatal("expected error for zero user id on Current")
	}
	if _, err := reg.Bump(ctx, 0); err == nil {
		t.Fatal("expected error for zero user id on Bump")
	}
}

func TestNewStoreRegistryRequiresDB(t *testing.T) {
	if _, err := NewStoreRegistry(nil); err == nil {
		t.Fatal("expected error without a database")
	}
}
