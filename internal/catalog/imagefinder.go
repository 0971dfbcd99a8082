// Package catalog はメニュー商品の登録・管理のドメインロジックを提供する。
package catalog

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/freshfast/foodhub/internal/model"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// ImageFinder は商品画像URLの解決機能を提供する。
// 管理者が入力したURLが画像そのものであればそのまま採用し、
// HTMLページであればheadタグのog:image/twitter:imageメタタグから画像URLを検出する。
type ImageFinder struct {
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
}

// NewImageFinder はImageFinderの新しいインスタンスを生成する。
func NewImageFinder(ssrfGuard SSRFValidator, timeout time.Duration, maxBodySize int64) *ImageFinder {
	return &ImageFinder{
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// FindImageURL は入力URLから商品画像URLを解決する。
// 1. SSRF検証を実行
// 2. URLにHTTPリクエストを送信
// 3. Content-Typeがimage/*なら入力URLをそのまま返す
// 4. HTMLの場合はheadタグのog:image/twitter:imageメタタグを検出
// 5. 画像未検出の場合はエラー（原因カテゴリ + 対処方法）を返す
func (f *ImageFinder) FindImageURL(ctx context.Context, inputURL string) (string, error) {
	if inputURL == "" {
		return "", model.NewInvalidImageURLError("URLが入力されていません")
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(inputURL); err != nil {
			return "", model.NewInvalidImageURLError(err.Error())
		}
	}

	// HTTPリクエスト送信
	client := f.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inputURL, nil)
	if err != nil {
		return "", model.NewInvalidImageURLError(err.Error())
	}
	req.Header.Set("User-Agent", "FoodHub/1.0 Storefront")
	req.Header.Set("Accept", "image/*, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", model.NewInvalidImageURLError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.NewImageNotFoundError(inputURL)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	mediaType = strings.ToLower(mediaType)

	// 画像直接判定
	if strings.HasPrefix(mediaType, "image/") {
		return inputURL, nil
	}

	// HTMLでも画像でもない場合
	if !strings.Contains(mediaType, "html") {
		return "", model.NewImageNotFoundError(inputURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.bodyLimit()))
	if err != nil {
		return "", model.NewImageNotFoundError(inputURL)
	}

	// HTMLからog:image/twitter:imageを検出
	imageURL := f.ParseImageFromHTML(body, inputURL)
	if imageURL == "" {
		return "", model.NewImageNotFoundError(inputURL)
	}

	// 検出結果自体も安全なURLであることを確認
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(imageURL); err != nil {
			return "", model.NewInvalidImageURLError(err.Error())
		}
	}

	return imageURL, nil
}

// ParseImageFromHTML はHTMLのheadタグからog:image/twitter:imageメタタグを解析する。
// og:imageを優先し、相対URLはbaseURLを基準に絶対URLに解決される。
func (f *ImageFinder) ParseImageFromHTML(htmlBody []byte, baseURL string) string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	var ogImage, twitterImage string

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

loop:
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			break loop

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				break loop
			}

			if !inHead || tagName != "meta" || !hasAttr {
				continue
			}

			// meta要素の属性を解析
			var property, name, content string
			for {
				key, val, more := tokenizer.TagAttr()
				k := strings.ToLower(string(key))
				v := string(val)
				switch k {
				case "property":
					property = strings.ToLower(v)
				case "name":
					name = strings.ToLower(v)
				case "content":
					content = v
				}
				if !more {
					break
				}
			}

			if content == "" {
				continue
			}

			switch {
			case property == "og:image" && ogImage == "":
				ogImage = content
			case name == "twitter:image" && twitterImage == "":
				twitterImage = content
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				break loop
			}
		}
	}

	// og:image優先
	candidate := ogImage
	if candidate == "" {
		candidate = twitterImage
	}
	if candidate == "" {
		return ""
	}

	return resolveURL(baseU, candidate)
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// getHTTPClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *ImageFinder) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.bodyLimit())
	}
	return &http.Client{Timeout: f.timeout}
}

func (f *ImageFinder) bodyLimit() int64 {
	if f.maxBodySize > 0 {
		return f.maxBodySize
	}
	return 2 * 1024 * 1024
}
