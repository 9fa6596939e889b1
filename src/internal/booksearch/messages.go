package booksearch

import (
	"errors"
	"net/http"

	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/sru"
	"bookshelf/src/internal/transport"
)

// User-facing messages.
const (
	MsgNoResults   = "該当する書籍が見つかりませんでした。"
	MsgTryISBN     = "お探しの書籍が見つからない場合は、ISBN（13桁）での検索をお試しください。"
	MsgTimeout     = "検索がタイムアウトしました。しばらく待ってから再試行してください。"
	MsgUnreachable = "検索サービスにアクセスできません。ネットワーク接続を確認するか、しばらく待ってから再試行してください。"
	MsgNotFound    = "検索サービスが見つかりません。しばらく待ってから再試行してください。"
	MsgServer      = "検索サービスでエラーが発生しました。しばらく待ってから再試行してください。"
	MsgRejected    = "検索サービスがリクエストを受け付けませんでした。しばらく待ってから再試行してください。"
	MsgGeneric     = "書籍の検索中にエラーが発生しました。しばらく待ってから再試行してください。"
)

// Message picks the user-facing text for a failed search.
func Message(err error) string {
	var de *sru.DiagnosticError
	if errors.As(err, &de) {
		return MsgRejected
	}
	switch transport.Classify(err) {
	case transport.KindTimeout:
		return MsgTimeout
	case transport.KindUnreachable:
		return MsgUnreachable
	case transport.KindRejected:
		var se *transport.StatusError
		if te := lastAttemptErr(err); errors.As(te, &se) {
			switch {
			case se.Code == http.StatusNotFound:
				return MsgNotFound
			case se.Code >= 500:
				return MsgServer
			}
		}
		return MsgRejected
	default:
		return MsgGeneric
	}
}

func lastAttemptErr(err error) error {
	var te *transport.Error
	if errors.As(err, &te) {
		return te.Last()
	}
	return err
}

func noResultsMessage(q cql.Query) string {
	if _, ok := keyword(q); ok {
		return MsgNoResults + " " + MsgTryISBN
	}
	return MsgNoResults
}
