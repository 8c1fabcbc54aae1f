package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Roles understood by the access gate.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const tokenIssuer = "roz"

// Principal is the authenticated actor attached to a request.
type Principal struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Session is a server-side login session. It is created at login and
// destroyed at logout; the token handed to clients only references it.
type Session struct {
	ID        string
	Principal Principal
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionPayload struct {
	Principal Principal `json:"principal"`
	IssuedAt  time.Time `json:"issued_at"`
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues signed bearer tokens backed by Redis sessions.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
	secret []byte
	now    func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		client: client,
		ttl:    ttl,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue creates a session for the principal and returns its signed token.
func (sm *SessionManager) Issue(ctx context.Context, p Principal) (string, *Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("session id: %w", err)
	}
	now := sm.now().UTC()
	sess := &Session{
		ID:        id.String(),
		Principal: p,
		IssuedAt:  now,
		ExpiresAt: now.Add(sm.ttl),
	}

	data, err := json.Marshal(sessionPayload{Principal: p, IssuedAt: now})
	if err != nil {
		return "", nil, err
	}
	_, err = sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl)
		pipe.SAdd(ctx, sm.userKey(p.Username), sess.ID)
		pipe.Expire(ctx, sm.userKey(p.Username), sm.ttl)
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	claims := sessionClaims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   p.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, sess, nil
}

// Load resolves the session referenced by the request's bearer token. It
// returns (nil, nil) when the request carries no token.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, nil
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(claims.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	// The role comes from the server-side record, not from the token claims.
	if stored.Principal.Username != claims.Subject {
		return nil, ErrInvalidToken
	}

	sess := &Session{
		ID:        claims.ID,
		Principal: stored.Principal,
		IssuedAt:  stored.IssuedAt,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Destroy deletes the server-side session so its token stops working.
func (sm *SessionManager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	_, err := sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sm.redisKey(sess.ID))
		pipe.SRem(ctx, sm.userKey(sess.Principal.Username), sess.ID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// DestroyUser deletes every session held by username, so removing an
// account also signs it out everywhere.
func (sm *SessionManager) DestroyUser(ctx context.Context, username string) error {
	key := sm.userKey(username)
	ids, err := sm.client.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sm.redisKey(id))
	}
	keys = append(keys, key)
	if err := sm.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) userKey(username string) string {
	return "user_sessions:" + username
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
