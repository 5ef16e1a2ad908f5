package auth

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	documentPattern = regexp.MustCompile(`^[0-9]{7,8}$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10,11}$`)
	lowerPattern    = regexp.MustCompile(`[a-z]`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
)

// messages maps field -> validation tag -> message
var messages = map[string]map[string]string{
	FieldEmail: {
		"required":  "El email es requerido",
		"email_fmt": "Email inválido",
	},
	FieldDocumentNumber: {
		"required": "La cédula es requerida",
		"cedula":   "Cédula inválida (7-8 dígitos)",
	},
	FieldFirstName: {
		"required": "El nombre es requerido",
		"min":      "Nombre muy corto",
	},
	FieldLastName: {
		"required": "El apellido es requerido",
		"min":      "Apellido muy corto",
	},
	FieldPhone: {
		"required": "El teléfono es requerido",
		"phone":    "Teléfono inválido (10-11 dígitos)",
	},
	FieldBalance: {
		"required":    "El balance es requerido",
		"balance":     "Balance inválido",
		"nonnegative": "El balance no puede ser negativo",
	},
	FieldConfirmPassword: {
		"required": "Confirma tu contraseña",
		"eqfield":  "Las contraseñas no coinciden",
	},
}

// Password messages differ between the login and register forms
var (
	loginPasswordMessages = map[string]string{
		"required": "La contraseña es requerida",
		"min":      "La contraseña debe tener al menos 6 caracteres",
	}
	registerPasswordMessages = map[string]string{
		"required": "La contraseña es requerida",
		"min":      "Mínimo 8 caracteres",
		"strong":   "Debe incluir mayúscula, minúscula y número",
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"email_fmt":   matches(emailPattern),
		"cedula":      matches(documentPattern),
		"phone":       validatePhone,
		"strong":      validateStrongPassword,
		"balance":     validateBalanceNumber,
		"nonnegative": validateBalanceNonNegative,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("failed to register " + tag + " validator: " + err.Error())
		}
	}
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	return lowerPattern.MatchString(p) && upperPattern.MatchString(p) && digitPattern.MatchString(p)
}

func validateBalanceNumber(fl validator.FieldLevel) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	return err == nil
}

func validateBalanceNonNegative(fl validator.FieldLevel) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	return err == nil && f >= 0
}

// toFieldErrors turns validator output into one message per field
func toFieldErrors(err error, passwordMessages map[string]string) FieldErrors {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return FieldErrors{"form": err.Error()}
	}

	out := FieldErrors{}
	for _, e := range validationErrors {
		field := e.Field()
		if _, done := out[field]; done {
			continue
		}
		byTag := messages[field]
		if field == FieldPassword {
			byTag = passwordMessages
		}
		msg, ok := byTag[e.Tag()]
		if !ok {
			msg = "Valor inválido"
		}
		out[field] = msg
	}
	return out
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email_fmt"`
	Password string `form:"password" validate:"required,min=6"`
}

// Validate returns nil when the form can be submitted
func (f LoginForm) Validate() FieldErrors {
	return toFieldErrors(validate.Struct(f), loginPasswordMessages)
}

// RegisterForm is the sign-up form, also used by the admin edit dialog with HidePassword set
type RegisterForm struct {
	DocumentType    string `form:"documentType"`
	DocumentNumber  string `form:"documentNumber" validate:"required,cedula"`
	FirstName       string `form:"firstName" validate:"required,min=2"`
	LastName        string `form:"lastName" validate:"required,min=2"`
	Phone           string `form:"phone" validate:"required,phone"`
	Email           string `form:"email" validate:"required,email_fmt"`
	Balance         string `form:"balance" validate:"omitempty,balance,nonnegative"`
	Password        string `form:"password" validate:"required,min=8,strong"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
	HidePassword    bool   `form:"-"`
}

// Validate returns nil when the form can be submitted. Password fields are skipped
// when HidePassword is set.
func (f RegisterForm) Validate() FieldErrors {
	var err error
	if f.HidePassword {
		err = validate.StructExcept(f, "Password", "ConfirmPassword")
	} else {
		err = validate.Struct(f)
	}
	return toFieldErrors(err, registerPasswordMessages)
}

// documentType defaults to V (venezolano)
func (f RegisterForm) documentType() string {
	if f.DocumentType == "" {
		return "V"
	}
	return f.DocumentType
}

// FullName joins first and last name as the backend stores it
func (f RegisterForm) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName))
}

// BalanceForm is the admin "set card balance" form
type BalanceForm struct {
	Balance string `form:"balance" validate:"required,balance,nonnegative"`
}

func (f BalanceForm) Validate() FieldErrors {
	return toFieldErrors(validate.Struct(f), nil)
}

// Amount is the balance in whole units, fraction dropped as the backend does.
// Only meaningful after Validate succeeds.
func (f BalanceForm) Amount() int64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(f.Balance), 64)
	return int64(math.Trunc(v))
}
