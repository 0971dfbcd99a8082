// Package model はドメインモデルを定義する。
package model

// CartLine はカート内の1明細を表す。
// 商品カタログへの参照はProductIDのみで、名前・単価・画像URLは
// 追加時点のスナップショットとして保持する（カタログ変更後も再同期しない）。
type CartLine struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"` // UGX（補助単位なしの整数通貨）
	Quantity  int    `json:"quantity"`  // 常に1以上
	ImageURL  string `json:"imageUrl"`
}

// Subtotal は明細の小計（単価×数量）を返す。
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart はカートの明細列を表す。
// ProductIDごとに高々1明細（同一商品の追加は数量を加算する）。
// 明細の順序は追加順を保持する。
type Cart struct {
	Lines []CartLine
}

// TotalItemCount は全明細の数量合計を返す。副作用なし。
func (c Cart) TotalItemCount() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice は全明細の小計合計を返す。副作用なし。
// 保存価格は整数UGXのため丸め処理は行わない。
func (c Cart) TotalPrice() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// IsEmpty は明細が1件もない場合にtrueを返す。
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone は明細スライスを複製したカートを返す。
// 呼び出し元の変更が元のカートへ波及しないようにする。
func (c Cart) Clone() Cart {
	if c.Lines == nil {
		return Cart{}
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// Equal は2つのカートが明細・順序とも完全に一致する場合にtrueを返す。
func (c Cart) Equal(other Cart) bool {
	if len(c.Lines) != len(other.Lines) {
		return false
	}
	for i := range c.Lines {
		if c.Lines[i] != other.Lines[i] {
			return false
		}
	}
	return true
}
