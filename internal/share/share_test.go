package share_test

import (
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/randomtoy/wheel-go/internal/share"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	items := []string{"🍕 Pizza", "a+b", "x&y=z", "50% off", "Café"}

	link, err := share.Encode("https://wheel.example/app?theme=dark", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := url.Parse(link)
	if u.Query().Get("theme") != "dark" {
		t.Errorf("other params lost: %s", link)
	}

	got, err := share.Decode(link)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, items) {
		t.Errorf("expected %v, got %v", items, got)
	}
}

func TestEncode_DoubleEncodesLikeBrowser(t *testing.T) {
	link, err := share.Encode("https://wheel.example/", []string{"a b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "https://wheel.example/?items=a%2520b%257Cc"; link != want {
		t.Errorf("expected %s, got %s", want, link)
	}
}

func TestDecode_BrowserLink(t *testing.T) {
	// encodeURIComponent("🍕 Pizza|Burger") placed through URLSearchParams.
	got, err := share.Decode("https://wheel.example/?items=%25F0%259F%258D%2595%2520Pizza%257C%2520Burger%257C%257C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"🍕 Pizza", "Burger"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDecode_NoItems(t *testing.T) {
	for _, link := range []string{
		"https://wheel.example/",
		"https://wheel.example/?items=",
		"https://wheel.example/?items=%257C%2520%257C",
		"https://wheel.example/?items=%25ZZ",
	} {
		if _, err := share.Decode(link); !errors.Is(err, share.ErrNoItems) {
			t.Errorf("%s: expected ErrNoItems, got %v", link, err)
		}
	}
}

func TestEncode_RejectsSeparator(t *testing.T) {
	_, err := share.Encode("https://wheel.example/", []string{"a|b"})
	if !errors.Is(err, share.ErrSeparatorInItem) {
		t.Errorf("expected ErrSeparatorInItem, got %v", err)
	}
}

func TestEncode_EmptyRemovesParam(t *testing.T) {
	got, err := share.Encode("https://wheel.example/?items=a%257Cb&lang=ko", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "https://wheel.example/?lang=ko"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
