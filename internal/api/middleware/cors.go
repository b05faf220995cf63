package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS разрешает запросы с перечисленных origin через go-chi/cors.
// Предварительный запрос (OPTIONS с Access-Control-Request-Method)
// получает 204 и не доходит до обработчиков.
// При "*" в списке credentials не разрешаются: браузер не принимает
// Access-Control-Allow-Credentials вместе с произвольным origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(allowedOrigins, "*")

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials:   !allowAll,
		MaxAge:             600,
		OptionsPassthrough: true,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}
