package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	jwtExpiry      = 7 * 24 * time.Hour
	bcryptCost     = 12
	minPasswordLen = 4
	minCallsignLen = 2
	maxCallsignLen = 16

	loginRatePerMin  = 10
	limiterStaleTime = 10 * time.Minute
)

// Auth handles accounts and tokens
type Auth struct {
	db        *DB
	jwtSecret []byte

	// per-IP login limiters, pruned lazily
	limMu    sync.Mutex
	limiters map[string]*loginLimiter
}

type loginLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewAuth creates the auth handler, loading or minting the JWT secret
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db),
		limiters:  make(map[string]*loginLimiter),
	}
}

// loadOrCreateSecret loads the signing secret from settings, or
// generates and persists a new one. Persisting keeps issued tokens
// valid across restarts.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// Register creates an account and returns (pilotID, token, error)
func (a *Auth) Register(callsign, password string) (int64, string, error) {
	callsign = strings.TrimSpace(callsign)

	if len(callsign) < minCallsignLen || len(callsign) > maxCallsignLen {
		return 0, "", fmt.Errorf("callsign must be %d-%d characters", minCallsignLen, maxCallsignLen)
	}
	if len(password) < minPasswordLen {
		return 0, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.CallsignExists(callsign)
	if err != nil {
		return 0, "", fmt.Errorf("database error")
	}
	if exists {
		return 0, "", fmt.Errorf("callsign already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, "", fmt.Errorf("internal error")
	}

	id, err := a.db.CreatePilot(callsign, string(hash))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create account")
	}

	token, err := a.generateToken(id, callsign)
	if err != nil {
		return 0, "", fmt.Errorf("internal error")
	}
	return id, token, nil
}

// Login authenticates a pilot and returns (pilotID, token, error)
func (a *Auth) Login(callsign, password, ip string) (int64, string, error) {
	if !a.allowLogin(ip) {
		return 0, "", fmt.Errorf("too many login attempts, try again later")
	}

	pilot, err := a.db.GetPilotByCallsign(callsign)
	if err != nil {
		return 0, "", fmt.Errorf("database error")
	}
	if pilot == nil || pilot.PassHash == "" {
		return 0, "", fmt.Errorf("invalid callsign or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(pilot.PassHash), []byte(password)); err != nil {
		return 0, "", fmt.Errorf("invalid callsign or password")
	}

	token, err := a.generateToken(pilot.ID, pilot.Callsign)
	if err != nil {
		return 0, "", fmt.Errorf("internal error")
	}
	return pilot.ID, token, nil
}

// ValidateToken checks a JWT and returns (pilotID, callsign, error)
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}
	pid, ok := claims["pid"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("invalid token claims")
	}
	callsign, ok := claims["cs"].(string)
	if !ok {
		return 0, "", fmt.Errorf("invalid token claims")
	}
	return int64(pid), callsign, nil
}

func (a *Auth) generateToken(pilotID int64, callsign string) (string, error) {
	claims := jwt.MapClaims{
		"pid": pilotID,
		"cs":  callsign,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// allowLogin applies a per-IP token bucket to login attempts
func (a *Auth) allowLogin(ip string) bool {
	a.limMu.Lock()
	defer a.limMu.Unlock()

	now := time.Now()
	entry, ok := a.limiters[ip]
	if !ok {
		entry = &loginLimiter{
			lim: rate.NewLimiter(rate.Limit(loginRatePerMin)/60, loginRatePerMin),
		}
		a.limiters[ip] = entry
		a.pruneLimiters(now)
	}
	entry.lastSeen = now
	return entry.lim.Allow()
}

// pruneLimiters drops limiters idle past limiterStaleTime. Caller holds limMu.
func (a *Auth) pruneLimiters(now time.Time) {
	for ip, e := range a.limiters {
		if now.Sub(e.lastSeen) > limiterStaleTime {
			delete(a.limiters, ip)
		}
	}
}

// GenerateGuestCallsign creates a name like "Rookie_a3f2"
func GenerateGuestCallsign() string {
	b := make([]byte, 2)
	rand.Read(b)
	return "Rookie_" + hex.EncodeToString(b)
}
