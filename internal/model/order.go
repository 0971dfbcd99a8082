package model

import "time"

// OrderStatus は注文の進行状態を表す。
type OrderStatus string

const (
	// OrderStatusPending は受付済み・未処理の注文。
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing は調理・配達準備中の注文。
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusDelivered は配達完了した注文。
	OrderStatusDelivered OrderStatus = "delivered"
)

// ValidOrderStatus は管理画面から設定可能なステータスかどうかを判定する。
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDelivered:
		return true
	}
	return false
}

// DeliveryDetails はチェックアウト時に入力される配達情報を表す。
// Name・Phone・Addressは必須。
type DeliveryDetails struct {
	Name          string
	Phone         string
	Address       string
	Area          string
	DeliveryTime  string // "ASAP" または時間帯指定
	PaymentMethod string // "cash" 等
}

// Order は確定済みの注文を表す。
// 明細はチェックアウト時点のカートのスナップショットであり、
// 以後のカタログ変更の影響を受けない。
type Order struct {
	ID        string
	UserID    string
	UserEmail string
	Delivery  DeliveryDetails
	Lines     []CartLine
	Total     int64 // UGX
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
