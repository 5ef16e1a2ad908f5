// Package backendfake is an in-process stand-in for the CiensPay REST backend, for tests.
//
// It issues short lived HS256 access tokens, keeps bcrypt password hashes and counts the
// calls made to every endpoint so tests can assert on refresh and retry behaviour.
package backendfake

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cienspay/cienspay-web/card"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Seeded accounts
const (
	AdminEmail    = "admin@cienspay.com"
	AdminPassword = "Admin1234"
	UserEmail     = "ana@example.com"
	UserPassword  = "Secreta123"
)

const defaultAccessTTL = 5 * time.Minute

type cardRecord struct {
	ID        int64
	UserID    int64
	Number    string
	Balance   int64
	Assigned  time.Time
	Expires   time.Time
	Active    bool
	Movements []transaction
}

type transaction struct {
	ID          int64  `json:"id"`
	Type        string `json:"tipo"`
	Amount      int64  `json:"monto"`
	Before      int64  `json:"saldo_anterior"`
	After       int64  `json:"saldo_posterior"`
	Date        string `json:"fecha_operacion"`
	Description string `json:"descripcion"`
	Succeeded   bool   `json:"exitoso"`
}

type userRecord struct {
	ID             int64
	Email          string
	FullName       string
	DocumentType   string
	DocumentNumber string
	Phone          string
	Status         string
	Rol            bool
	Registered     time.Time
	PasswordHash   []byte
}

type Backend struct {
	srv    *httptest.Server
	secret []byte

	mu            sync.Mutex
	now           func() time.Time
	accessTTL     time.Duration
	generation    int
	failRefresh   bool
	singleUse     bool
	users         map[int64]*userRecord
	cards         map[int64]*cardRecord
	refreshTokens map[string]int64
	calls         map[string]int
	nextID        int64
	rng           *rand.Rand
}

// New starts the fake backend with an admin and a regular user holding one card
func New() *Backend {
	b := &Backend{
		secret:        []byte(uuid.NewString()),
		now:           time.Now,
		accessTTL:     defaultAccessTTL,
		users:         map[int64]*userRecord{},
		cards:         map[int64]*cardRecord{},
		refreshTokens: map[string]int64{},
		calls:         map[string]int{},
		rng:           rand.New(rand.NewPCG(1, 2)),
	}

	b.addUser(userRecord{Email: AdminEmail, FullName: "Administrador CiensPay", DocumentType: "V",
		DocumentNumber: "10000000", Phone: "04120000000", Rol: true}, AdminPassword)
	ana := b.addUser(userRecord{Email: UserEmail, FullName: "Ana Pérez", DocumentType: "V",
		DocumentNumber: "12345678", Phone: "04141234567"}, UserPassword)
	c := b.addCard(ana.ID, 0)
	b.deposit(c, 150000, "Recarga inicial")
	b.withdraw(c, 25000, "Compra en comercio")

	mux := http.NewServeMux()
	b.routes(mux)
	b.srv = httptest.NewServer(mux)
	return b
}

func (b *Backend) Close() {
	b.srv.Close()
}

// BaseURL is the API root to hand to apiclient
func (b *Backend) BaseURL() string {
	return b.srv.URL + "/api"
}

// Calls returns how many requests hit path (relative to the API root, e.g. "/auth/refresh/")
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// ExpireAccessTokens invalidates every access token issued so far
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// SetFailRefresh makes both refresh endpoints answer 401
func (b *Backend) SetFailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// SetSingleUseRefresh revokes a refresh token the first time it is used
func (b *Backend) SetSingleUseRefresh(single bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.singleUse = single
}

// SetAccessTTL changes the lifetime of access tokens issued from now on
func (b *Backend) SetAccessTTL(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessTTL = d
}

// UserID returns the id of the account registered under email, or 0
func (b *Backend) UserID(email string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u := b.userByEmail(email); u != nil {
		return u.ID
	}
	return 0
}

// UserStatus returns the account status of id, or "" when it does not exist
func (b *Backend) UserStatus(id int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u := b.users[id]; u != nil {
		return u.Status
	}
	return ""
}

// CardIDs returns the ids of the cards owned by userID
func (b *Backend) CardIDs(userID int64) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int64
	for _, c := range b.cards {
		if c.UserID == userID {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) addUser(u userRecord, password string) *userRecord {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u.ID = b.id()
	u.PasswordHash = hash
	u.Registered = b.now()
	if u.Status == "" {
		u.Status = "active"
	}
	b.users[u.ID] = &u
	return &u
}

func (b *Backend) addCard(userID, balance int64) *cardRecord {
	now := b.now()
	c := &cardRecord{
		ID:       b.id(),
		UserID:   userID,
		Number:   card.PreviewNumber(b.rng),
		Balance:  balance,
		Assigned: now,
		Expires:  now.AddDate(4, 0, 0),
		Active:   true,
	}
	b.cards[c.ID] = c
	return c
}

func (b *Backend) deposit(c *cardRecord, amount int64, desc string) {
	b.move(c, "DEP", amount, desc)
}

func (b *Backend) withdraw(c *cardRecord, amount int64, desc string) {
	b.move(c, "RET", -amount, desc)
}

func (b *Backend) move(c *cardRecord, kind string, delta int64, desc string) {
	before := c.Balance
	c.Balance += delta
	amount := delta
	if amount < 0 {
		amount = -amount
	}
	c.Movements = append(c.Movements, transaction{
		ID: b.id(), Type: kind, Amount: amount, Before: before, After: c.Balance,
		Date: b.now().Format(time.RFC3339), Description: desc, Succeeded: true,
	})
}

func (b *Backend) userByEmail(email string) *userRecord {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range b.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (b *Backend) issueAccess(u *userRecord) (string, error) {
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(u.ID, 10),
		"email": u.Email,
		"gen":   b.generation,
		"iat":   b.now().Unix(),
		"exp":   b.now().Add(b.accessTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) issueRefresh(u *userRecord) string {
	token := uuid.NewString()
	b.refreshTokens[token] = u.ID
	return token
}

// authenticate resolves the bearer token to a user; the caller holds b.mu
func (b *Backend) authenticate(r *http.Request) *userRecord {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	if gen, _ := claims["gen"].(float64); int(gen) != b.generation {
		return nil
	}
	sub, _ := claims.GetSubject()
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil
	}
	u := b.users[id]
	if u == nil || u.Status != "active" {
		return nil
	}
	return u
}

func (b *Backend) count(r *http.Request) {
	b.calls[strings.TrimPrefix(r.URL.Path, "/api")]++
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func tokenNotValid(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
}
