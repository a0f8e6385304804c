package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jobdesk/apiserver/types"
)

type contextKey string

const contextPrincipalKey contextKey = "principal"

// payload is the response envelope shared by every endpoint:
// {success, message, <domain-key>?, error?}.
type payload map[string]any

func success(message string) payload {
	return payload{"success": true, "message": message}
}

func failure(message string) payload {
	return payload{"success": false, "message": message}
}

func (p payload) with(key string, value any) payload {
	p[key] = value
	return p
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeInternal converts an unexpected fault into a 500 envelope. The
// diagnostic string is attached only outside production.
func writeInternal(w http.ResponseWriter, dev bool, message string, err error) {
	body := failure(message)
	if dev && err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func principalFromContext(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(contextPrincipalKey).(types.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, contextPrincipalKey, p)
}

// requestToken pulls the bearer value from the request: a raw `token`
// header wins over `Authorization: Bearer <token>` when both are present.
func requestToken(r *http.Request) (string, error) {
	if token := strings.TrimSpace(r.Header.Get("token")); token != "" {
		return token, nil
	}

	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing token")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("malformed authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("malformed authorization header")
	}
	return token, nil
}

func issueToken(principalID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(principalID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseTokenSubject verifies the token and returns the numeric subject.
// Expired tokens surface jwt.ErrTokenExpired so callers can report expiry
// distinctly from malformation.
func parseTokenSubject(tokenString string, secret []byte) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

// Pagination is the listing metadata block returned alongside paged data.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func paginationOf(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func pathID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
