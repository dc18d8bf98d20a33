package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/pribylovaa/metrics-tracker/internal/transport"
)

// RequestID обеспечивает наличие X-Request-Id:
//  1. читает заголовок, если есть;
//  2. иначе генерирует hex id (32 символа);
//  3. кладёт id в заголовки ответа и запроса и в контекст
//     (transport.RequestID() перенесёт его в вызовы upstream).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(transport.HeaderRequestID)
			if id == "" {
				id = genID()
				r.Header.Set(transport.HeaderRequestID, id)
			}
			w.Header().Set(transport.HeaderRequestID, id)

			ctx := transport.WithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
