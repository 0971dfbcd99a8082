package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freshfast/foodhub/internal/model"
)

// TestParseImageFromHTML_OGImage はog:imageメタタグの検出を検証する。
func TestParseImageFromHTML_OGImage(t *testing.T) {
	htmlBody := []byte(`<!DOCTYPE html>
<html>
<head>
<title>Chicken Pilau | FreshFast</title>
<meta property="og:image" content="https://img.example.com/pilau.jpg">
</head>
<body><p>body</p></body>
</html>`)

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got := finder.ParseImageFromHTML(htmlBody, "https://example.com/menu/pilau")

	if got != "https://img.example.com/pilau.jpg" {
		t.Errorf("expected og:image URL, got %q", got)
	}
}

// TestParseImageFromHTML_OGImagePreferredOverTwitter はog:imageがtwitter:imageより優先されることを検証する。
func TestParseImageFromHTML_OGImagePreferredOverTwitter(t *testing.T) {
	htmlBody := []byte(`<html><head>
<meta name="twitter:image" content="https://img.example.com/twitter.jpg">
<meta property="og:image" content="https://img.example.com/og.jpg">
</head><body></body></html>`)

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got := finder.ParseImageFromHTML(htmlBody, "https://example.com/")

	if got != "https://img.example.com/og.jpg" {
		t.Errorf("expected og:image to win, got %q", got)
	}
}

// TestParseImageFromHTML_TwitterFallback はog:imageがない場合のtwitter:imageフォールバックを検証する。
func TestParseImageFromHTML_TwitterFallback(t *testing.T) {
	htmlBody := []byte(`<html><head>
<meta name="twitter:image" content="https://img.example.com/twitter.jpg">
</head><body></body></html>`)

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got := finder.ParseImageFromHTML(htmlBody, "https://example.com/")

	if got != "https://img.example.com/twitter.jpg" {
		t.Errorf("expected twitter:image fallback, got %q", got)
	}
}

// TestParseImageFromHTML_RelativeURLResolved は相対URLがベースURL基準で解決されることを検証する。
func TestParseImageFromHTML_RelativeURLResolved(t *testing.T) {
	htmlBody := []byte(`<html><head>
<meta property="og:image" content="/images/rolex.jpg">
</head><body></body></html>`)

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got := finder.ParseImageFromHTML(htmlBody, "https://example.com/menu/rolex")

	if got != "https://example.com/images/rolex.jpg" {
		t.Errorf("expected resolved absolute URL, got %q", got)
	}
}

// TestParseImageFromHTML_BodyMetaIgnored はbody内のメタタグが無視されることを検証する。
func TestParseImageFromHTML_BodyMetaIgnored(t *testing.T) {
	htmlBody := []byte(`<html><head><title>t</title></head>
<body><meta property="og:image" content="https://img.example.com/sneaky.jpg"></body></html>`)

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got := finder.ParseImageFromHTML(htmlBody, "https://example.com/")

	if got != "" {
		t.Errorf("meta tags outside head must be ignored, got %q", got)
	}
}

// TestFindImageURL_DirectImage はContent-Typeがimage/*の場合に入力URLがそのまま返ることを検証する。
func TestFindImageURL_DirectImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	defer server.Close()

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got, err := finder.FindImageURL(context.Background(), server.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != server.URL+"/photo.jpg" {
		t.Errorf("expected input URL unchanged, got %q", got)
	}
}

// TestFindImageURL_HTMLPage はHTMLページからog:imageが検出されることを検証する。
func TestFindImageURL_HTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><meta property="og:image" content="https://img.example.com/dish.jpg"></head><body></body></html>`))
	}))
	defer server.Close()

	finder := NewImageFinder(nil, 10*time.Second, 0)
	got, err := finder.FindImageURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "https://img.example.com/dish.jpg" {
		t.Errorf("expected detected og:image, got %q", got)
	}
}

// TestFindImageURL_NoImageFound は画像未検出時にIMAGE_NOT_FOUNDが返ることを検証する。
func TestFindImageURL_NoImageFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>no image</title></head><body></body></html>`))
	}))
	defer server.Close()

	finder := NewImageFinder(nil, 10*time.Second, 0)
	_, err := finder.FindImageURL(context.Background(), server.URL)

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeImageNotFound {
		t.Errorf("expected code %s, got %s", model.ErrCodeImageNotFound, apiErr.Code)
	}
}

// TestFindImageURL_EmptyURL は空URLがエラーになることを検証する。
func TestFindImageURL_EmptyURL(t *testing.T) {
	finder := NewImageFinder(nil, 10*time.Second, 0)
	_, err := finder.FindImageURL(context.Background(), "")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidImageURL {
		t.Errorf("expected code %s, got %s", model.ErrCodeInvalidImageURL, apiErr.Code)
	}
}

// TestFindImageURL_NonOKStatus は404応答がIMAGE_NOT_FOUNDになることを検証する。
func TestFindImageURL_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	finder := NewImageFinder(nil, 10*time.Second, 0)
	_, err := finder.FindImageURL(context.Background(), server.URL)

	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeImageNotFound {
		t.Errorf("expected IMAGE_NOT_FOUND, got %v", err)
	}
}
