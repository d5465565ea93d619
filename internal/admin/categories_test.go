package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/naseaoi/IceTV/internal/models"
	"github.com/naseaoi/IceTV/internal/store"
)

func newCategoryService(t *testing.T, cats ...models.Category) *Service {
	t.Helper()
	mem := store.NewMemory()
	cfg := models.DefaultAdminConfig()
	cfg.CustomCategories = cats
	if err := mem.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return NewService(mem, nil, "root")
}

func categoryKeys(t *testing.T, s *Service) []string {
	t.Helper()
	cfg, err := s.Config(context.Background())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	keys := make([]string, len(cfg.CustomCategories))
	for i, c := range cfg.CustomCategories {
		keys[i] = c.Key()
	}
	return keys
}

func TestAddCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("AppendsWithDerivedKey", func(t *testing.T) {
		svc := newCategoryService(t)
		err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{
			Action: "add", Name: "斗罗大陆", Type: "tv", Query: "斗罗大陆",
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		cfg, _ := svc.Config(ctx)
		if len(cfg.CustomCategories) != 1 {
			t.Fatalf("expected 1 category, got %d", len(cfg.CustomCategories))
		}
		got := cfg.CustomCategories[0]
		if got.Key() != "tv_斗罗大陆" {
			t.Errorf("derived key = %q", got.Key())
		}
		if got.From != models.SourceFromCustom {
			t.Errorf("added category should be custom, got %q", got.From)
		}
	})

	t.Run("DuplicateDerivedKeyRejectedAndListUnchanged", func(t *testing.T) {
		svc := newCategoryService(t, models.Category{Name: "old", Type: "movie", Query: "战争", From: models.SourceFromCustom})
		err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{
			Action: "add", Name: "new", Type: "movie", Query: "战争",
		})
		if !errors.Is(err, ErrKeyExists) {
			t.Fatalf("expected ErrKeyExists, got %v", err)
		}
		cfg, _ := svc.Config(ctx)
		if len(cfg.CustomCategories) != 1 || cfg.CustomCategories[0].Name != "old" {
			t.Errorf("stored list must be unchanged after rejected add: %+v", cfg.CustomCategories)
		}
	})

	t.Run("BadTypeOrMissingQueryRejected", func(t *testing.T) {
		svc := newCategoryService(t)
		for _, req := range []CategoryActionRequest{
			{Action: "add", Type: "music", Query: "q"},
			{Action: "add", Type: "movie"},
		} {
			if err := svc.ApplyCategoryAction(ctx, req); !errors.Is(err, ErrInvalid) {
				t.Errorf("request %+v: expected ErrInvalid, got %v", req, err)
			}
		}
	})
}

func TestConfigOriginCategories(t *testing.T) {
	ctx := context.Background()
	seed := models.Category{Name: "Sub", Type: "movie", Query: "sub", From: models.SourceFromConfig}

	t.Run("DisableSucceeds", func(t *testing.T) {
		svc := newCategoryService(t, seed)
		if err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{Action: "disable", Key: "movie_sub"}); err != nil {
			t.Fatalf("disable: %v", err)
		}
		cfg, _ := svc.Config(ctx)
		if !cfg.CustomCategories[0].Disabled {
			t.Error("category should be disabled")
		}
	})

	t.Run("DeleteRejected", func(t *testing.T) {
		svc := newCategoryService(t, seed)
		err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{Action: "delete", Key: "movie_sub"})
		if !errors.Is(err, ErrConfigOrigin) {
			t.Fatalf("expected ErrConfigOrigin, got %v", err)
		}
		if got := categoryKeys(t, svc); len(got) != 1 {
			t.Errorf("category must survive rejected delete, got %v", got)
		}
	})

	t.Run("BatchDeleteWithConfigEntryRejectedWholesale", func(t *testing.T) {
		svc := newCategoryService(t, seed,
			models.Category{Name: "Mine", Type: "tv", Query: "mine", From: models.SourceFromCustom})
		err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{Action: "batch_delete", Keys: []string{"tv_mine", "movie_sub"}})
		if !errors.Is(err, ErrConfigOrigin) {
			t.Fatalf("expected ErrConfigOrigin, got %v", err)
		}
		if got := categoryKeys(t, svc); len(got) != 2 {
			t.Errorf("no entry may be deleted when the batch is rejected, got %v", got)
		}
	})
}

func TestSortCategories(t *testing.T) {
	ctx := context.Background()
	seed := []models.Category{
		{Name: "A", Type: "movie", Query: "a", From: models.SourceFromCustom},
		{Name: "B", Type: "tv", Query: "b", From: models.SourceFromCustom},
		{Name: "C", Type: "movie", Query: "c", From: models.SourceFromConfig},
	}

	t.Run("ReplacesOrderAtomically", func(t *testing.T) {
		svc := newCategoryService(t, seed...)
		err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{
			Action: "sort", Order: []string{"movie_c", "movie_a", "tv_b"},
		})
		if err != nil {
			t.Fatalf("sort: %v", err)
		}
		got := categoryKeys(t, svc)
		want := []string{"movie_c", "movie_a", "tv_b"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	})

	t.Run("KeySetMismatchRejected", func(t *testing.T) {
		svc := newCategoryService(t, seed...)
		for _, order := range [][]string{
			{"movie_a", "tv_b"},                       // missing key
			{"movie_a", "tv_b", "movie_c", "movie_d"}, // extra key
			{"movie_a", "tv_b", "movie_d"},            // unknown key
			{"movie_a", "movie_a", "tv_b"},            // duplicate key
		} {
			err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{Action: "sort", Order: order})
			if !errors.Is(err, ErrOrderConflict) {
				t.Errorf("order %v: expected ErrOrderConflict, got %v", order, err)
			}
		}
		got := categoryKeys(t, svc)
		want := []string{"movie_a", "tv_b", "movie_c"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("stored order must be unchanged after rejected sort, got %v", got)
			}
		}
	})

	t.Run("UnknownActionRejected", func(t *testing.T) {
		svc := newCategoryService(t, seed...)
		err := svc.ApplyCategoryAction(ctx, CategoryActionRequest{Action: "explode", Key: "movie_a"})
		if !errors.Is(err, ErrUnknownAction) {
			t.Fatalf("expected ErrUnknownAction, got %v", err)
		}
	})
}
