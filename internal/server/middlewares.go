package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"private-chat/internal/auth"
	"private-chat/internal/storage/zapadapter"
)

// enforceWebsocket is a middleware pre-processing each HTTP request
// it checks for GET method and websocket upgrade headers
func enforceWebsocket(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if !websocket.IsWebSocketUpgrade(r) {
			http.Error(w, "Websocket upgrade required", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate puts identity of a valid token into request context
// requests without valid token pass through anonymous, the websocket handler rejects them with a close code
func authenticate(next http.Handler, verifier *auth.Verifier, logger *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := verifier.ExtractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := verifier.Verify(token)
		if err != nil {
			logger.Infof("Rejecting token from %s: %v", r.RemoteAddr, err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), id)))
	})
}

func log(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.NewContextWithConnID(r.Context(), id)
		rwID := r.WithContext(ctx)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.Path),
			zap.String("ip", r.RemoteAddr),
		)

		next.ServeHTTP(w, rwID)
	})
}
