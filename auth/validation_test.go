package auth_test

import (
	"testing"

	"github.com/cienspay/cienspay-web/auth"
	"github.com/stretchr/testify/require"
)

func TestLoginForm_Validate(t *testing.T) {
	tests := []struct {
		name string
		form auth.LoginForm
		want auth.FieldErrors
	}{
		{"ok", auth.LoginForm{Email: "ana@example.com", Password: "secreto"}, nil},
		{"empty", auth.LoginForm{}, auth.FieldErrors{
			"email":    "El email es requerido",
			"password": "La contraseña es requerida",
		}},
		{"bad email", auth.LoginForm{Email: "ana@example", Password: "secreto"}, auth.FieldErrors{
			"email": "Email inválido",
		}},
		{"short password", auth.LoginForm{Email: "ana@example.com", Password: "12345"}, auth.FieldErrors{
			"password": "La contraseña debe tener al menos 6 caracteres",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.form.Validate())
		})
	}
}

func validRegisterForm() auth.RegisterForm {
	return auth.RegisterForm{
		DocumentNumber:  "12345678",
		FirstName:       "Ana",
		LastName:        "Pérez",
		Phone:           "0414 123 4567",
		Email:           "ana@example.com",
		Balance:         "0.00",
		Password:        "Secreta123",
		ConfirmPassword: "Secreta123",
	}
}

func TestRegisterForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *auth.RegisterForm)
		field  string
		want   string
	}{
		{"document required", func(f *auth.RegisterForm) { f.DocumentNumber = "" }, "documentNumber", "La cédula es requerida"},
		{"document six digits", func(f *auth.RegisterForm) { f.DocumentNumber = "123456" }, "documentNumber", "Cédula inválida (7-8 dígitos)"},
		{"document letters", func(f *auth.RegisterForm) { f.DocumentNumber = "1234567a" }, "documentNumber", "Cédula inválida (7-8 dígitos)"},
		{"first name required", func(f *auth.RegisterForm) { f.FirstName = "" }, "firstName", "El nombre es requerido"},
		{"first name short", func(f *auth.RegisterForm) { f.FirstName = "A" }, "firstName", "Nombre muy corto"},
		{"last name required", func(f *auth.RegisterForm) { f.LastName = "" }, "lastName", "El apellido es requerido"},
		{"last name short", func(f *auth.RegisterForm) { f.LastName = "P" }, "lastName", "Apellido muy corto"},
		{"phone required", func(f *auth.RegisterForm) { f.Phone = "" }, "phone", "El teléfono es requerido"},
		{"phone short", func(f *auth.RegisterForm) { f.Phone = "041412" }, "phone", "Teléfono inválido (10-11 dígitos)"},
		{"email required", func(f *auth.RegisterForm) { f.Email = "" }, "email", "El email es requerido"},
		{"email invalid", func(f *auth.RegisterForm) { f.Email = "ana at example.com" }, "email", "Email inválido"},
		{"balance not a number", func(f *auth.RegisterForm) { f.Balance = "abc" }, "balance", "Balance inválido"},
		{"balance negative", func(f *auth.RegisterForm) { f.Balance = "-1" }, "balance", "El balance no puede ser negativo"},
		{"password required", func(f *auth.RegisterForm) { f.Password, f.ConfirmPassword = "", "x" }, "password", "La contraseña es requerida"},
		{"password short", func(f *auth.RegisterForm) { f.Password, f.ConfirmPassword = "Ab1", "Ab1" }, "password", "Mínimo 8 caracteres"},
		{"password weak", func(f *auth.RegisterForm) { f.Password, f.ConfirmPassword = "abcdefgh1", "abcdefgh1" }, "password", "Debe incluir mayúscula, minúscula y número"},
		{"confirm required", func(f *auth.RegisterForm) { f.ConfirmPassword = "" }, "confirmPassword", "Confirma tu contraseña"},
		{"confirm mismatch", func(f *auth.RegisterForm) { f.ConfirmPassword = "Secreta124" }, "confirmPassword", "Las contraseñas no coinciden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validRegisterForm()
			tt.mutate(&f)
			errs := f.Validate()
			require.Equal(t, tt.want, errs.Get(tt.field), errs)
		})
	}

	t.Run("valid", func(t *testing.T) {
		require.Nil(t, validRegisterForm().Validate())
	})

	t.Run("empty balance is optional", func(t *testing.T) {
		f := validRegisterForm()
		f.Balance = ""
		require.Nil(t, f.Validate())
	})

	t.Run("hidden password skips password rules", func(t *testing.T) {
		f := validRegisterForm()
		f.Password, f.ConfirmPassword = "", ""
		f.HidePassword = true
		require.Nil(t, f.Validate())
	})
}

func TestRegisterRequestFrom(t *testing.T) {
	f := validRegisterForm()
	f.FirstName = " Ana "
	f.Email = "  Ana@Example.COM "

	req := auth.RegisterRequestFrom(f)
	require.Equal(t, "V", req.DocumentType)
	require.Equal(t, "Ana Pérez", req.FullName)
	require.Equal(t, "ana@example.com", req.Email)
	require.Equal(t, "04141234567", req.Phone)
	require.Equal(t, "Secreta123", req.Password2)
}

func TestFieldErrors_Error(t *testing.T) {
	errs := auth.FieldErrors{"password": "b", "email": "a"}
	require.EqualError(t, errs, "validation failed: email: a, password: b")
	var none auth.FieldErrors
	require.Empty(t, none.Get("email"))
}

func TestBalanceForm(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		want    int64
		errMsg  string
	}{
		{name: "whole", balance: "1500", want: 1500},
		{name: "fraction is dropped", balance: " 1.6 ", want: 1},
		{name: "just under next unit", balance: "99.99", want: 99},
		{name: "missing", balance: "", errMsg: "El balance es requerido"},
		{name: "negative", balance: "-5", errMsg: "El balance no puede ser negativo"},
		{name: "not a number", balance: "abc", errMsg: "Balance inválido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := auth.BalanceForm{Balance: tt.balance}
			errs := f.Validate()
			if tt.errMsg != "" {
				require.Equal(t, tt.errMsg, errs.Get(auth.FieldBalance))
				return
			}
			require.Nil(t, errs)
			require.Equal(t, tt.want, f.Amount())
		})
	}
}
