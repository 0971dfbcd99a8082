package cart

import "github.com/freshfast/foodhub/internal/model"

// Merge はゲストカートをユーザーカートへマージした結果を返す。
// 規則はAddLineと同じ: 同一ProductIDは数量を加算し、
// ユーザーカートにない商品はゲストカートの順序のまま末尾に追加する。
// 引数のカートは変更しない。
func Merge(userCart, guestCart model.Cart) model.Cart {
	merged := userCart.Clone()
	for _, line := range guestCart.Lines {
		merged = addLine(merged, line)
	}
	return merged
}
