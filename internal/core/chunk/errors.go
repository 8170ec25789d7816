package chunk

import "errors"

// ErrInvalidParameter はチャンクサイズやオーバーラップが不正な場合のエラー
var ErrInvalidParameter = errors.New("invalid chunk parameter")
