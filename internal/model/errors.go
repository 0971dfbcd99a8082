package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, order, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidProduct     = "INVALID_PRODUCT"
	ErrCodeInvalidImageURL    = "INVALID_IMAGE_URL"
	ErrCodeImageNotFound      = "IMAGE_NOT_FOUND"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeInvalidDelivery    = "INVALID_DELIVERY"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeInvalidOrderStatus = "INVALID_ORDER_STATUS"
	ErrCodeInvalidRole        = "INVALID_ROLE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeCSRFTokenInvalid   = "CSRF_TOKEN_INVALID"
)

// NewCSRFTokenError はCSRFトークン検証エラーを生成する。
func NewCSRFTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "catalog",
		Action:   "メニューを再読み込みして商品を選び直してください。",
	}
}

// NewInvalidProductError は商品入力の検証エラーを生成する。
func NewInvalidProductError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProduct,
		Message:  fmt.Sprintf("商品情報が不正です: %s", reason),
		Category: "validation",
		Action:   "商品名と価格（1以上の整数UGX）を入力してください。",
	}
}

// NewInvalidImageURLError は画像URLの検証エラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("画像URLが不正です: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps://の画像URLを指定してください。",
	}
}

// NewImageNotFoundError はページから商品画像を検出できなかったエラーを生成する。
func NewImageNotFoundError(pageURL string) *APIError {
	return &APIError{
		Code:     ErrCodeImageNotFound,
		Message:  fmt.Sprintf("指定されたページから商品画像を検出できませんでした: %s", pageURL),
		Category: "catalog",
		Action:   "画像URLを直接入力するか、og:imageが設定されたページのURLを指定してください。",
	}
}

// NewInvalidQuantityError は数量の検証エラーを生成する。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("無効な数量です: %d", quantity),
		Category: "validation",
		Action:   "数量には1以上の整数を指定してください。",
	}
}

// NewEmptyCartError は空カートでのチェックアウトエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空です。",
		Category: "order",
		Action:   "メニューから商品をカートに追加してから注文してください。",
	}
}

// NewInvalidDeliveryError は配達情報の検証エラーを生成する。
func NewInvalidDeliveryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDelivery,
		Message:  fmt.Sprintf("配達情報が不足しています: %s", reason),
		Category: "validation",
		Action:   "氏名・電話番号・配達先住所を入力してください。",
	}
}

// NewOrderNotFoundError は注文未検出エラーを生成する。
func NewOrderNotFoundError(orderID string) *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("指定された注文が見つかりません: %s", orderID),
		Category: "order",
		Action:   "注文IDを確認してください。",
	}
}

// NewInvalidOrderStatusError は無効な注文ステータスエラーを生成する。
func NewInvalidOrderStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOrderStatus,
		Message:  fmt.Sprintf("無効な注文ステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには pending、processing、delivered のいずれかを指定してください。",
	}
}

// NewInvalidRoleError は無効なロールエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには user または admin を指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}
