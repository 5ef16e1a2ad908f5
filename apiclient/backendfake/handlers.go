package backendfake

import (
	"encoding/json"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var documentPattern = regexp.MustCompile(`^\d{7,8}$`)

func (b *Backend) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login/", b.public(b.login))
	mux.HandleFunc("POST /api/auth/register/", b.public(b.register))
	mux.HandleFunc("POST /api/auth/refresh/", b.public(b.refreshCustom))
	mux.HandleFunc("POST /api/token/refresh/", b.public(b.refreshSimpleJWT))
	mux.HandleFunc("GET /api/auth/profile/", b.authed(b.profile))
	mux.HandleFunc("GET /api/auth/me/", b.authed(b.profile))
	mux.HandleFunc("POST /api/auth/logout/", b.authed(b.logout))
	mux.HandleFunc("GET /api/transactions/summary/", b.authed(b.summary))
	mux.HandleFunc("GET /api/admin/users-cards/", b.admin(b.usersCards))
	mux.HandleFunc("GET /api/admin/users/{id}/", b.admin(b.getUser))
	mux.HandleFunc("PATCH /api/admin/users/{id}/", b.admin(b.patchUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}/", b.admin(b.deleteUser))
	mux.HandleFunc("PATCH /api/cards/{id}/balance/", b.admin(b.cardBalance))
	mux.HandleFunc("PATCH /api/cards/{id}/toggle/", b.admin(b.cardToggle))
	mux.HandleFunc("POST /api/cards/generate/", b.admin(b.cardGenerate))
}

type handler func(w http.ResponseWriter, r *http.Request, u *userRecord)

// public counts the call and serialises access to the fake's state
func (b *Backend) public(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.count(r)
		h(w, r, nil)
	}
}

func (b *Backend) authed(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.count(r)
		u := b.authenticate(r)
		if u == nil {
			tokenNotValid(w)
			return
		}
		h(w, r, u)
	}
}

func (b *Backend) admin(h handler) http.HandlerFunc {
	return b.authed(func(w http.ResponseWriter, r *http.Request, u *userRecord) {
		if !u.Rol {
			fail(w, http.StatusForbidden, "No tiene permisos para realizar esta acción")
			return
		}
		h(w, r, u)
	})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (b *Backend) userJSON(u *userRecord) map[string]any {
	var balance int64
	cards := b.cardsOf(u.ID)
	cardsJSON := make([]map[string]any, 0, len(cards))
	for _, c := range cards {
		balance += c.Balance
		cardsJSON = append(cardsJSON, cardJSON(c))
	}
	return map[string]any{
		"id":                u.ID,
		"full_name":         u.FullName,
		"email":             u.Email,
		"document_type":     u.DocumentType,
		"document_number":   u.DocumentNumber,
		"phone":             u.Phone,
		"status":            u.Status,
		"registration_date": u.Registered.Format(time.RFC3339),
		"has_card":          len(cards) > 0,
		"balance":           strconv.FormatInt(balance, 10),
		"rol":               u.Rol,
		"cards_count":       len(cards),
		"cards":             cardsJSON,
	}
}

func cardJSON(c *cardRecord) map[string]any {
	return map[string]any{
		"id":                c.ID,
		"numero_tarjeta":    c.Number,
		"saldo":             c.Balance,
		"fecha_asignacion":  c.Assigned.Format(time.RFC3339),
		"fecha_vencimiento": c.Expires.Format("2006-01-02"),
		"activo":            c.Active,
	}
}

func (b *Backend) cardsOf(userID int64) []*cardRecord {
	var out []*cardRecord
	for _, c := range b.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &in); err != nil || in.Email == "" || in.Password == "" {
		fail(w, http.StatusBadRequest, "Email y contraseña son requeridos")
		return
	}
	u := b.userByEmail(in.Email)
	if u == nil || u.Status != "active" || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)) != nil {
		fail(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}
	access, err := b.issueAccess(u)
	if err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Inicio de sesión exitoso",
		"access":  access,
		"refresh": b.issueRefresh(u),
		"user":    b.userJSON(u),
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	var in struct {
		DocumentType   string `json:"document_type"`
		DocumentNumber string `json:"document_number"`
		FullName       string `json:"full_name"`
		Phone          string `json:"phone"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		Password2      string `json:"password2"`
	}
	if err := decodeBody(r, &in); err != nil {
		fail(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	errs := map[string][]string{}
	if b.userByEmail(in.Email) != nil {
		errs["email"] = []string{"Ya existe un usuario con este email"}
	}
	if !documentPattern.MatchString(in.DocumentNumber) {
		errs["document_number"] = []string{"Cédula inválida"}
	}
	for _, u := range b.users {
		if u.DocumentNumber == in.DocumentNumber {
			errs["document_number"] = []string{"Ya existe un usuario con esta cédula"}
		}
	}
	if len(in.Password) < 8 {
		errs["password"] = []string{"La contraseña es demasiado corta"}
	}
	if in.Password != in.Password2 {
		errs["password2"] = []string{"Las contraseñas no coinciden"}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "errors": errs})
		return
	}

	b.addUser(userRecord{
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		FullName:       in.FullName,
		DocumentType:   in.DocumentType,
		DocumentNumber: in.DocumentNumber,
		Phone:          in.Phone,
	}, in.Password)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Usuario registrado exitosamente"})
}

// redeem validates a refresh token and issues a new access token
func (b *Backend) redeem(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeBody(r, &in); err != nil || in.Refresh == "" {
		fail(w, http.StatusBadRequest, "Refresh token requerido")
		return "", false
	}
	id, ok := b.refreshTokens[in.Refresh]
	if b.failRefresh || !ok || b.users[id] == nil {
		tokenNotValid(w)
		return "", false
	}
	if b.singleUse {
		delete(b.refreshTokens, in.Refresh)
	}
	access, err := b.issueAccess(b.users[id])
	if err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return "", false
	}
	return access, true
}

func (b *Backend) refreshCustom(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	if access, ok := b.redeem(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"access": access}})
	}
}

func (b *Backend) refreshSimpleJWT(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	if access, ok := b.redeem(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]string{"access": access})
	}
}

func (b *Backend) profile(w http.ResponseWriter, _ *http.Request, u *userRecord) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": b.userJSON(u)})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request, u *userRecord) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	_ = decodeBody(r, &in)
	if b.refreshTokens[in.Refresh] == u.ID {
		delete(b.refreshTokens, in.Refresh)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Sesión cerrada"})
}

func (b *Backend) summary(w http.ResponseWriter, _ *http.Request, u *userRecord) {
	cards := b.cardsOf(u.ID)
	cardsJSON := make([]map[string]any, 0, len(cards))
	txs := []transaction{}
	var total int64
	for _, c := range cards {
		cardsJSON = append(cardsJSON, cardJSON(c))
		txs = append(txs, c.Movements...)
		total += c.Balance
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id": u.ID, "username": u.Email, "email": u.Email, "full_name": u.FullName,
		},
		"cards":        cardsJSON,
		"transactions": txs,
		"summary": map[string]any{
			"total_cards":        len(cards),
			"total_transactions": len(txs),
			"total_balance":      total,
		},
	})
}

func queryBool(r *http.Request, key string) (bool, bool) {
	v := strings.ToLower(r.URL.Query().Get(key))
	switch v {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func (b *Backend) usersCards(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	page = max(page, 1)
	size, err := strconv.Atoi(q.Get("page_size"))
	if err != nil {
		size = 10
	}
	size = min(max(size, 1), 100)
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))
	status := q.Get("status")
	hasCard, filterHasCard := queryBool(r, "has_card")
	cardActive, filterActive := queryBool(r, "card_active")

	var matched []*userRecord
	for _, u := range b.users {
		if search != "" && !strings.Contains(strings.ToLower(u.FullName), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) && !strings.Contains(u.DocumentNumber, search) {
			continue
		}
		if status != "" && u.Status != status {
			continue
		}
		cards := b.cardsOf(u.ID)
		if filterHasCard && (len(cards) > 0) != hasCard {
			continue
		}
		if filterActive {
			found := false
			for _, c := range cards {
				if c.Active == cardActive {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	data := []map[string]any{}
	start := (page - 1) * size
	for i := start; i < len(matched) && i < start+size; i++ {
		data = append(data, b.userJSON(matched[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"page":      page,
		"page_size": size,
		"total":     len(matched),
		"data":      data,
	})
}

func (b *Backend) pathUser(w http.ResponseWriter, r *http.Request) *userRecord {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || b.users[id] == nil {
		fail(w, http.StatusNotFound, "Usuario no encontrado")
		return nil
	}
	return b.users[id]
}

func (b *Backend) pathCard(w http.ResponseWriter, r *http.Request) *cardRecord {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || b.cards[id] == nil {
		fail(w, http.StatusNotFound, "Tarjeta no encontrada")
		return nil
	}
	return b.cards[id]
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	if u := b.pathUser(w, r); u != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": b.userJSON(u)})
	}
}

func (b *Backend) patchUser(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	u := b.pathUser(w, r)
	if u == nil {
		return
	}
	var in struct {
		FullName       *string `json:"full_name"`
		Email          *string `json:"email"`
		DocumentType   *string `json:"document_type"`
		DocumentNumber *string `json:"document_number"`
		Phone          *string `json:"phone"`
		Status         *string `json:"status"`
		Rol            *bool   `json:"rol"`
	}
	if err := decodeBody(r, &in); err != nil {
		fail(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if in.Email != nil {
		if other := b.userByEmail(*in.Email); other != nil && other.ID != u.ID {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"errors":  map[string][]string{"email": {"Ya existe un usuario con este email"}},
			})
			return
		}
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.DocumentNumber != nil {
		if !documentPattern.MatchString(*in.DocumentNumber) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"errors":  map[string][]string{"document_number": {"Cédula inválida"}},
			})
			return
		}
		u.DocumentNumber = *in.DocumentNumber
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.FullName, in.FullName)
	set(&u.DocumentType, in.DocumentType)
	set(&u.Phone, in.Phone)
	set(&u.Status, in.Status)
	if in.Rol != nil {
		u.Rol = *in.Rol
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Usuario actualizado", "data": b.userJSON(u)})
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	u := b.pathUser(w, r)
	if u == nil {
		return
	}
	if hard, _ := queryBool(r, "hard"); hard {
		for _, c := range b.cardsOf(u.ID) {
			delete(b.cards, c.ID)
		}
		delete(b.users, u.ID)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Usuario eliminado permanentemente"})
		return
	}
	u.Status = "inactive"
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Usuario desactivado"})
}

func (b *Backend) cardBalance(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	c := b.pathCard(w, r)
	if c == nil {
		return
	}
	var in struct {
		Balance *float64 `json:"balance"`
	}
	if err := decodeBody(r, &in); err != nil || in.Balance == nil {
		fail(w, http.StatusBadRequest, "El balance es requerido")
		return
	}
	if *in.Balance < 0 {
		fail(w, http.StatusBadRequest, "El balance no puede ser negativo")
		return
	}
	delta := int64(*in.Balance) - c.Balance
	switch {
	case delta > 0:
		b.move(c, "DEP", delta, "Ajuste de saldo")
	case delta < 0:
		b.move(c, "RET", delta, "Ajuste de saldo")
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Balance actualizado", "card": cardJSON(c)})
}

func (b *Backend) cardToggle(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	c := b.pathCard(w, r)
	if c == nil {
		return
	}
	var in struct {
		Active *bool `json:"activo"`
	}
	_ = decodeBody(r, &in)
	if in.Active != nil {
		c.Active = *in.Active
	} else {
		c.Active = !c.Active
	}
	msg := "Tarjeta desactivada"
	if c.Active {
		msg = "Tarjeta activada"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg, "card": cardJSON(c)})
}

func (b *Backend) cardGenerate(w http.ResponseWriter, r *http.Request, _ *userRecord) {
	var in struct {
		UserID         *int64 `json:"user_id"`
		DocumentNumber string `json:"document_number"`
		InitialBalance *int64 `json:"saldo_inicial"`
	}
	if err := decodeBody(r, &in); err != nil {
		fail(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	var owner *userRecord
	switch {
	case in.UserID != nil:
		owner = b.users[*in.UserID]
	case in.DocumentNumber != "":
		for _, u := range b.users {
			if u.DocumentNumber == in.DocumentNumber {
				owner = u
			}
		}
	default:
		fail(w, http.StatusBadRequest, "Debe indicar user_id o document_number")
		return
	}
	if owner == nil {
		fail(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}

	for _, c := range b.cardsOf(owner.ID) {
		if c.Active {
			fail(w, http.StatusBadRequest, "El usuario ya tiene una tarjeta activa")
			return
		}
	}

	var initial int64
	if in.InitialBalance != nil {
		if *in.InitialBalance < 0 {
			fail(w, http.StatusBadRequest, "El saldo inicial no puede ser negativo")
			return
		}
		initial = *in.InitialBalance
	}
	c := b.addCard(owner.ID, 0)
	if initial > 0 {
		b.deposit(c, initial, "Saldo inicial")
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Tarjeta generada", "card": cardJSON(c)})
}
