package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"betcha_portal/internal/app"
	"betcha_portal/internal/domain"
)

func TestPhoto_SecondCallIsACacheHit(t *testing.T) {
	fc := &fakeClient{
		properties: map[string]domain.Property{
			"p1": {ID: "p1", PhotoLinks: []string{"https://cdn/p1.jpg"}},
		},
	}
	pr := app.NewPhotoResolver(fc, newMemCache(), time.Minute)
	ctx := context.Background()

	if u := pr.Photo(ctx, "p1"); u != "https://cdn/p1.jpg" {
		t.Fatalf("first call: %q", u)
	}
	if u := pr.Photo(ctx, "p1"); u != "https://cdn/p1.jpg" {
		t.Fatalf("second call: %q", u)
	}
	if n := fc.calls("p1"); n != 1 {
		t.Fatalf("expected exactly one network call, got %d", n)
	}
}

func TestPhoto_NoPhotoIsCachedAsAbsent(t *testing.T) {
	fc := &fakeClient{
		properties: map[string]domain.Property{"p1": {ID: "p1"}}, // no photoLinks
	}
	pr := app.NewPhotoResolver(fc, newMemCache(), time.Minute)
	ctx := context.Background()

	if u := pr.Photo(ctx, "p1"); u != "" {
		t.Fatalf("expected empty URL, got %q", u)
	}
	if u := pr.Photo(ctx, "p1"); u != "" {
		t.Fatalf("expected empty URL on hit, got %q", u)
	}
	if n := fc.calls("p1"); n != 1 {
		t.Fatalf("absence should be cached, got %d calls", n)
	}
}

func TestPhoto_FetchFailureIsCachedAndSilent(t *testing.T) {
	fc := &fakeClient{propertyErr: errors.New("boom")}
	pr := app.NewPhotoResolver(fc, newMemCache(), time.Minute)
	ctx := context.Background()

	if u := pr.Photo(ctx, "p9"); u != "" {
		t.Fatalf("expected empty URL on failure, got %q", u)
	}
	// failure is treated identically to "no photo": no retry this session
	if u := pr.Photo(ctx, "p9"); u != "" {
		t.Fatalf("expected empty URL on cached failure, got %q", u)
	}
	if n := fc.calls("p9"); n != 1 {
		t.Fatalf("failed fetch should not be retried, got %d calls", n)
	}
}

func TestPhoto_EmptyPropertyID(t *testing.T) {
	fc := &fakeClient{}
	pr := app.NewPhotoResolver(fc, newMemCache(), time.Minute)

	if u := pr.Photo(context.Background(), ""); u != "" {
		t.Fatalf("expected empty URL for empty id, got %q", u)
	}
	if n := fc.calls(""); n != 0 {
		t.Fatalf("empty id must not hit the network, got %d calls", n)
	}
}
