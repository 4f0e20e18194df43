package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auth/internal/dto"
	"auth/internal/netutil"
	"auth/internal/observability/metrics"
	"auth/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	CORSOrigins []string
	TrustProxy  bool
}

type handler struct {
	auth     service.AuthService
	otpLogin service.OTPLoginService
	reset    service.PasswordResetService
	opts     Options
}

func NewRouter(auth service.AuthService, otpLogin service.OTPLoginService, reset service.PasswordResetService, opts Options) *chi.Mux {
	h := &handler{auth: auth, otpLogin: otpLogin, reset: reset, opts: opts}

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	// Password brute force is mitigated here, not by the lockout ladder.
	r.Use(httprate.LimitByIP(100, 1*time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(recordMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/oauth", h.oauthLogin)
		r.Route("/otp", func(r chi.Router) {
			r.Post("/request", h.otpRequest)
			r.Post("/verify", h.otpVerify)
		})
		r.Route("/password-reset", func(r chi.Router) {
			r.Post("/", h.resetInitiate)
			r.Post("/verify", h.resetVerify)
			r.Post("/confirm", h.resetConfirm)
		})
	})

	return r
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Username and password are required."})
		return
	}
	user, err := h.auth.AuthenticateLocal(r.Context(), req, h.clientIP(r), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login Successful.", "user": user})
}

func (h *handler) oauthLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.OAuthLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.Provider != "google" || req.SubjectID == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Incomplete OAuth profile."})
		return
	}
	user, err := h.auth.AuthenticateOAuth(r.Context(), req, h.clientIP(r), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login Successful.", "user": user})
}

func (h *handler) otpRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.PhoneNumber == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Phone number is required."})
		return
	}
	res, err := h.otpLogin.RequestOTP(r.Context(), req, h.clientIP(r), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) otpVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.PhoneNumber == "" || req.OTP == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Phone number and OTP are required."})
		return
	}
	user, err := h.otpLogin.VerifyOTP(r.Context(), req, h.clientIP(r), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login Successful.", "user": user})
}

func (h *handler) resetInitiate(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetInitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.Identifier == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Identifier is required."})
		return
	}
	res, err := h.reset.Initiate(r.Context(), req, h.clientIP(r), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) resetVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.Identifier == "" || req.OTP == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Identifier and OTP are required."})
		return
	}
	res, err := h.reset.VerifyOTP(r.Context(), req, h.clientIP(r), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) resetConfirm(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body."})
		return
	}
	if req.Identifier == "" || req.Token == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Identifier, token and new password are required."})
		return
	}
	if err := h.reset.Reset(r.Context(), req, h.clientIP(r), r.UserAgent()); err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Your password has been successfully reset."})
}

func (h *handler) clientIP(r *http.Request) string {
	if h.opts.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// XFF can be a list: client, proxy1, proxy2...
			ip := strings.TrimSpace(strings.Split(xff, ",")[0])
			if normalized, ok := netutil.NormalizeIP(ip); ok {
				return normalized
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			if normalized, ok := netutil.NormalizeIP(xr); ok {
				return normalized
			}
		}
	}
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// recordMetrics observes request counts and latency per chi route pattern.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
