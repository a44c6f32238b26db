package connects

import (
	"net/url"
	"testing"
)

func TestStripeAuthorizeURLUsesClientID(t *testing.T) {
	link, err := NewStripeOAuthClient(" ca_platform ").AuthorizeURL("vendor-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse %q: %v", link, err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "ca_platform" {
		t.Fatalf("expected client_id ca_platform, got %q", q.Get("client_id"))
	}
	if q.Get("state") != "vendor-42" {
		t.Fatalf("expected state vendor-42, got %q", q.Get("state"))
	}
	if q.Get("response_type") != "code" || q.Get("scope") != "read_write" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestStripeAuthorizeURLNeedsClientID(t *testing.T) {
	if _, err := NewStripeOAuthClient("").AuthorizeURL("vendor-42"); err == nil {
		t.Fatal("expected missing client id to fail")
	}
}
