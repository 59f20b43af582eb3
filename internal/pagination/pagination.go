// Package pagination は並び順の決まったコレクションを固定サイズのページに分割する。
package pagination

import "strconv"

// DefaultPerPage は1ページあたりの既定件数。
const DefaultPerPage = 10

// Page は解決済みのページ位置を表す。
type Page struct {
	Number   int // 1始まりのページ番号
	NumPages int // 総ページ数（0件でも1）
	PerPage  int
	Count    int // コレクション全体の件数
}

// Resolve は生のページ指定を有効なページに解決する。
// 未指定や数値以外は1ページ目、範囲外は最終ページとして扱う。
func Resolve(raw string, count, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if count < 0 {
		count = 0
	}
	numPages := (count + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	return Page{Number: number, NumPages: numPages, PerPage: perPage, Count: count}
}

// Offset はページ先頭要素の0始まりのインデックスを返す。
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit はこのページに含まれる要素数の上限を返す。
func (p Page) Limit() int {
	remaining := p.Count - p.Offset()
	if remaining < 0 {
		return 0
	}
	if remaining < p.PerPage {
		return remaining
	}
	return p.PerPage
}

// HasNext は次のページが存在するかを返す。
func (p Page) HasNext() bool { return p.Number < p.NumPages }

// HasPrevious は前のページが存在するかを返す。
func (p Page) HasPrevious() bool { return p.Number > 1 }

// HasOtherPages はページ送りを表示すべきかを返す。
func (p Page) HasOtherPages() bool { return p.NumPages > 1 }

// NextNumber は次のページ番号を返す。
func (p Page) NextNumber() int { return p.Number + 1 }

// PreviousNumber は前のページ番号を返す。
func (p Page) PreviousNumber() int { return p.Number - 1 }

// Numbers は1から総ページ数までのページ番号を返す。
func (p Page) Numbers() []int {
	nums := make([]int, p.NumPages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// Result はページ位置とそのページに含まれる要素を保持する。
type Result[T any] struct {
	Page
	Items []T
}

// Load はページを解決し、listで該当範囲の要素を取得する。
// 範囲内の要素が0件の場合はlistを呼び出さない。
func Load[T any](raw string, count, perPage int, list func(limit, offset int) ([]T, error)) (*Result[T], error) {
	page := Resolve(raw, count, perPage)
	result := &Result[T]{Page: page, Items: []T{}}
	if page.Limit() == 0 {
		return result, nil
	}
	items, err := list(page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}
