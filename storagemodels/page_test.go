/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name      string
		pageNo    int64
		pageSize  int64
		firstPage int
		offset    int64
		limit     int64
	}{
		{"ZeroBasedFirst", 0, 20, 0, 0, 20},
		{"ZeroBasedThird", 2, 20, 0, 40, 20},
		{"OneBasedFirst", 1, 20, 1, 0, 20},
		{"OneBasedBelowFirst", 0, 20, 1, 0, 20},
		{"DefaultSize", 3, 0, 0, 30, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := PageWindow(tt.pageNo, tt.pageSize, tt.firstPage, nil)
			if w.Offset != tt.offset || w.Limit != tt.limit {
				t.Fatalf("Expected offset %d limit %d, got %d %d", tt.offset, tt.limit, w.Offset, w.Limit)
			}
		})
	}

	r := PageRequest{Current: 2, Size: 5, OneBased: true, Sort: []SortField{Desc("Rating")}}
	w := r.Window(0)
	if w.Offset != 5 || len(w.Sort) != 1 || !w.Sort[0].Desc {
		t.Fatalf("Unexpected window for one-based request: %+v", w)
	}
	if !w.Windowed() || (FindOptions{}).Windowed() {
		t.Fatal("Windowed mismatch")
	}
}

func TestPage(t *testing.T) {
	p := Page[int]{Content: []int{1, 2}, Total: 5, Offset: 2, Size: 2}
	if p.Number() != 1 || p.TotalPages() != 3 || !p.HasNext() {
		t.Fatalf("Unexpected page arithmetic: number=%d pages=%d", p.Number(), p.TotalPages())
	}

	last := Page[int]{Total: 5, Offset: 4, Size: 2}
	if last.HasNext() {
		t.Fatal("Last page must not have a next page")
	}

	empty := EmptyPage[int](0, 10)
	if empty.Content == nil || len(empty.Content) != 0 || empty.TotalPages() != 0 {
		t.Fatalf("Unexpected empty page: %+v", empty)
	}
}

func TestQueryParamsIsEmpty(t *testing.T) {
	var nilParams *QueryParams
	if !nilParams.IsEmpty() || !(&QueryParams{FilterExpression: aws.String("")}).IsEmpty() {
		t.Fatal("Expected params without conditions to be empty")
	}
	if (&QueryParams{KeyConditionExpression: "PK = :pk"}).IsEmpty() {
		t.Fatal("Key condition must make params non-empty")
	}
	if (&QueryParams{FilterExpression: aws.String("a = :a")}).IsEmpty() {
		t.Fatal("Filter must make params non-empty")
	}
}
