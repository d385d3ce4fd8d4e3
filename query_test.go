/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync_test

import (
	"context"
	"testing"

	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/datastore/mock"
	"github.com/suparena/entitysync/storagemodels"
)

func seededRecords(n int) []record {
	out := make([]record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, record{ID: int64(i), A: intp(i)})
	}
	return out
}

func TestCountFindConsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, recordDescriptor(false), seededRecords(5)...)

	queries := map[string]entitysync.Query{
		"none":  entitysync.Where(mock.Match[record](func(record) bool { return false })),
		"some":  entitysync.Where(mock.Match[record](func(r record) bool { return *r.A > 3 })),
		"all":   entitysync.Where(mock.All[record]()),
		"empty": entitysync.Where(nil),
	}

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			n, err := f.svc.CountByQuery(ctx, q)
			if err != nil {
				t.Fatalf("CountByQuery failed: %v", err)
			}
			found, err := f.svc.FindByQuery(ctx, q)
			if err != nil {
				t.Fatalf("FindByQuery failed: %v", err)
			}
			if int64(len(found)) != n {
				t.Fatalf("Count %d disagrees with %d found", n, len(found))
			}
			if found == nil {
				t.Fatal("FindByQuery should return an empty slice, not nil")
			}
		})
	}
}

func TestFindOneByQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, recordDescriptor(false), seededRecords(3)...)

	one, ok, err := f.svc.FindOneByQuery(ctx, entitysync.Where(mock.All[record]()))
	if err != nil || !ok || one.ID != 1 {
		t.Fatalf("Expected record 1, got %+v ok=%v err=%v", one, ok, err)
	}

	f.store.ResetCalls()
	_, ok, err = f.svc.FindOneByQuery(ctx, entitysync.Where(mock.Match[record](func(record) bool { return false })))
	if err != nil || ok {
		t.Fatalf("Expected no match, got ok=%v err=%v", ok, err)
	}
	if f.store.Calls(mock.OpFindByCondition) != 0 {
		t.Fatal("A zero count should skip the read")
	}
}

func TestFindPage(t *testing.T) {
	ctx := context.Background()
	all := entitysync.Where(mock.All[record]())

	t.Run("ZeroBased", func(t *testing.T) {
		f := newFixture(t, recordDescriptor(false), seededRecords(5)...)
		page, err := f.svc.FindPage(ctx, all, 1, 2)
		if err != nil {
			t.Fatalf("FindPage failed: %v", err)
		}
		if page.Total != 5 || page.Offset != 2 || len(page.Content) != 2 || page.Content[0].ID != 3 {
			t.Fatalf("Unexpected page: %+v", page)
		}
		if page.TotalPages() != 3 || !page.HasNext() {
			t.Fatalf("Expected 3 pages with a next page, got %d", page.TotalPages())
		}
	})

	t.Run("OneBased", func(t *testing.T) {
		desc := recordDescriptor(false)
		desc.FirstPage = 1
		f := newFixture(t, desc, seededRecords(5)...)

		first, err := f.svc.FindPage(ctx, all, 1, 2)
		if err != nil || first.Content[0].ID != 1 {
			t.Fatalf("Page 1 should be the first page, got %+v (%v)", first, err)
		}
		clamped, err := f.svc.FindPage(ctx, all, 0, 2)
		if err != nil || clamped.Offset != 0 {
			t.Fatalf("Pages below the first clamp to it, got %+v (%v)", clamped, err)
		}
		last, err := f.svc.FindPageRequest(ctx, all, storagemodels.PageRequest{Current: 3, Size: 2})
		if err != nil || len(last.Content) != 1 || last.HasNext() {
			t.Fatalf("Unexpected last page: %+v (%v)", last, err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		f := newFixture(t, recordDescriptor(false))
		page, err := f.svc.FindPage(ctx, all, 0, 10)
		if err != nil {
			t.Fatalf("FindPage failed: %v", err)
		}
		if page.Total != 0 || len(page.Content) != 0 || page.Content == nil {
			t.Fatalf("Expected an empty page, got %+v", page)
		}
		if f.store.Calls(mock.OpFindByCondition) != 0 {
			t.Fatal("An empty count should skip the read")
		}
	})
}

func TestReadsByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, recordDescriptor(false), seededRecords(3)...)

	got, ok, err := f.svc.GetByID(ctx, 2)
	if err != nil || !ok || *got.A != 2 {
		t.Fatalf("GetByID failed: %+v ok=%v err=%v", got, ok, err)
	}

	list, err := f.svc.GetListByIDs(ctx, []int64{3, 9, 1})
	if err != nil || len(list) != 2 || list[0].ID != 3 {
		t.Fatalf("GetListByIDs failed: %+v (%v)", list, err)
	}

	f.store.ResetCalls()
	if list, _ := f.svc.GetListByIDs(ctx, nil); len(list) != 0 || f.store.Reads() != 0 {
		t.Fatal("Empty id lists should not reach the backend")
	}

	n, err := f.svc.CountAll(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountAll: %d (%v)", n, err)
	}
}
