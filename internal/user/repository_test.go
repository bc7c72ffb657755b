package user

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRepository_ListOffsets(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewInMemoryRepository([]User{
		{ID: "a", Email: "a@example.com", CreatedAt: base},
		{ID: "b", Email: "b@example.com", CreatedAt: base.Add(time.Minute)},
	})

	users, err := repo.List(context.Background(), -100, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].ID != "a" {
		t.Fatalf("negative offset should start at the first user, got %+v", users)
	}

	users, _ = repo.List(context.Background(), 5, 10)
	if len(users) != 0 {
		t.Fatalf("offset past the end should be empty, got %+v", users)
	}
}
