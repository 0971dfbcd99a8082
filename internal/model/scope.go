package model

// ScopeKind はカート所有者スコープの種別を表す。
type ScopeKind string

const (
	// ScopeKindGuest は未認証（ゲスト）スコープ。
	ScopeKindGuest ScopeKind = "guest"
	// ScopeKindUser は認証済みユーザースコープ。
	ScopeKindUser ScopeKind = "user"
)

// Scope はカートの所有者スコープを表す。
// ゲストの場合IDは端末ID（ゲストCookieの値）、
// ユーザーの場合IDはユーザーIDを保持する。
// 比較可能な値型であり、==で同一性を判定できる。
type Scope struct {
	Kind ScopeKind
	ID   string
}

// GuestScope は端末IDに紐づくゲストスコープを生成する。
func GuestScope(terminalID string) Scope {
	return Scope{Kind: ScopeKindGuest, ID: terminalID}
}

// UserScope はユーザーIDに紐づくユーザースコープを生成する。
func UserScope(userID string) Scope {
	return Scope{Kind: ScopeKindUser, ID: userID}
}

// IsUser は認証済みユーザースコープの場合にtrueを返す。
func (s Scope) IsUser() bool {
	return s.Kind == ScopeKindUser
}
