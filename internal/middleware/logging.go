package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/milicad/fittrack/pkg"
)

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := pkg.ReadUserIP(r)
			if err != nil {
				ip = r.RemoteAddr
			}
			userAgent := r.Header.Get("User-Agent")
			log.Tracef(" ====> request [%s] path: [%s] ip: [%s] [UA: %s]", r.Method, r.URL.Path, ip, userAgent)
			next.ServeHTTP(w, r)
		})
	}
}
