package planetary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airbusgeo/stac-quickvrt/service"
)

func newTestSigner(t *testing.T, expiry time.Time, calls *int) *Signer {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		switch r.URL.Path {
		case "/token/sentinel2l2a01/sentinel2-l2":
			if r.Header.Get("Ocp-Apim-Subscription-Key") != "key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprintf(w, `{"msft:expiry": "%s", "token": "st=2023&se=2023&sp=rl&sig=abc%%3D"}`, expiry.UTC().Format(time.RFC3339))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	s := NewSigner(srv.Client())
	s.TokenURL = srv.URL + "/token"
	s.SubscriptionKey = "key"
	return s
}

func TestSign(t *testing.T) {
	ctx := context.Background()
	calls := 0
	now := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now.Add(time.Hour), &calls)
	s.now = func() time.Time { return now }

	href := "https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/31/T/CJ/B04_10m.tif"
	signed, err := s.Sign(ctx, href)
	if err != nil {
		t.Fatal(err)
	}
	if signed != href+"?st=2023&se=2023&sp=rl&sig=abc%3D" {
		t.Errorf("wrong signed href: %s", signed)
	}

	// already signed
	again, err := s.Sign(ctx, signed)
	if err != nil || again != signed {
		t.Errorf("signing must be idempotent: %s %v", again, err)
	}

	// cached token
	if _, err := s.Sign(ctx, "https://sentinel2l2a01.blob.core.windows.net/sentinel2-l2/31/T/CJ/B03_10m.tif"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expecting 1 token request, got %d", calls)
	}

	// expired token
	now = now.Add(time.Hour)
	if _, err := s.Sign(ctx, href); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expecting a new token request, got %d", calls)
	}
}

func TestSignNotBlob(t *testing.T) {
	calls := 0
	s := newTestSigner(t, time.Now().Add(time.Hour), &calls)
	for _, href := range []string{
		"https://landsateuwest.example.com/landsat-c2/B4.TIF",
		"/data/local/B04.tif",
	} {
		signed, err := s.Sign(context.Background(), href)
		if err != nil || signed != href {
			t.Errorf("%s: expecting unchanged href, got %s %v", href, signed, err)
		}
	}
	if calls != 0 {
		t.Errorf("expecting no token request, got %d", calls)
	}
}

func TestSignError(t *testing.T) {
	calls := 0
	s := newTestSigner(t, time.Now().Add(time.Hour), &calls)
	_, err := s.Sign(context.Background(), "https://unknown.blob.core.windows.net/container/B04.tif")
	var errStatus service.ErrHTTPStatus
	if !errors.As(err, &errStatus) || errStatus.StatusCode != http.StatusNotFound {
		t.Errorf("expecting a 404, got %v", err)
	}

	_, err = s.Sign(context.Background(), "https://unknown.blob.core.windows.net/")
	if err == nil {
		t.Error("expecting an error without container")
	}
}
