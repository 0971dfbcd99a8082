package model

import "time"

// Product はメニュー上の商品を表す。
type Product struct {
	ID          string
	Name        string
	Description string // サニタイズ済みHTML
	Price       int64  // UGX（補助単位なしの整数通貨）
	Category    string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine は商品から指定数量のカート明細スナップショットを生成する。
func (p *Product) CartLine(quantity int) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		ImageURL:  p.ImageURL,
	}
}

// Favorite はユーザーのお気に入り商品を表す。
type Favorite struct {
	UserID    string
	ProductID string
	CreatedAt time.Time
}
