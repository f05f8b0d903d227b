// locale — нормализация языка интерфейса (en/ar).
//
// Язык хранится в cookie "locale" сроком на год. Любое значение вне
// allow-list нормализуется в en; нормализация только «ответная» — cookie
// запроса не переписывается.
package locale

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Locale — поддерживаемый язык.
type Locale string

const (
	EN Locale = "en"
	AR Locale = "ar"

	Default = EN
)

const (
	CookieName = "locale"
	// Header — нормализованный язык для рендеринга.
	Header = "x-locale"
	// DirHeader — направление письма для рендеринга.
	DirHeader = "x-locale-dir"
	// CookieTTL — срок жизни cookie языка.
	CookieTTL = 365 * 24 * time.Hour
)

// ErrInvalidLocale — значение вне allow-list.
var ErrInvalidLocale = errors.New("invalid locale")

// DefaultExclude — пути без нормализации языка (API, статика, оптимизатор картинок, favicon).
// Совпадение — по префиксу пути без ведущего "/".
var DefaultExclude = []string{"api", "_next/static", "_next/image", "favicon.ico"}

// Resolve нормализует значение cookie: ar -> ar, всё остальное (включая пустое) -> en.
func Resolve(value string) Locale {
	if l, err := Parse(value); err == nil {
		return l
	}

	return Default
}

// Parse — строгий разбор: только значения из allow-list.
func Parse(value string) (Locale, error) {
	switch Locale(value) {
	case EN:
		return EN, nil
	case AR:
		return AR, nil
	default:
		return "", ErrInvalidLocale
	}
}

// FromRequest — нормализованный язык запроса.
func FromRequest(r *http.Request) Locale {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Default
	}

	return Resolve(c.Value)
}

// Dir — направление письма.
func (l Locale) Dir() string {
	if l == AR {
		return "rtl"
	}

	return "ltr"
}

func (l Locale) String() string { return string(l) }

// Excluded сообщает, исключён ли путь из нормализации.
func Excluded(path string, exclude []string) bool {
	p := strings.TrimPrefix(path, "/")
	for _, e := range exclude {
		e = strings.Trim(e, "/")
		if e != "" && strings.HasPrefix(p, e) {
			return true
		}
	}

	return false
}

// CookieOptions — атрибуты cookie языка.
type CookieOptions struct {
	Domain string
	Secure bool
}

// SetCookie сохраняет выбор языка на год. Cookie доступна скриптам страницы.
func SetCookie(w http.ResponseWriter, l Locale, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(l),
		Path:     "/",
		Domain:   opts.Domain,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(CookieTTL.Seconds()),
		Expires:  time.Now().Add(CookieTTL),
	})
}
