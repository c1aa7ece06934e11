// Package i18n resolves the caller's language and prints the service's
// user-facing messages in it.
package i18n

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "wheel_lang"
)

// Message keys.
const (
	MsgResult            = "Result: %s"
	MsgNeedTwoItems      = "Add at least 2 items"
	MsgAlreadySpinning   = "The wheel is already spinning"
	MsgNotSpinning       = "The wheel is not spinning"
	MsgSpinMismatch      = "That spin has already finished"
	MsgNoFact            = "No fun fact available, but still awesome!"
	MsgWheelNotFound     = "Wheel not found"
	MsgRandomUnavailable = "Secure randomness is unavailable, please try again later"
)

var supportedTags = []language.Tag{
	language.English,
	language.Uzbek,
	language.Korean,
	language.Russian,
	language.Spanish,
}

var tagMatcher = language.NewMatcher(supportedTags)

var translations = map[language.Tag]map[string]string{
	language.Uzbek: {
		MsgResult:            "Natija: %s",
		MsgNeedTwoItems:      "Kamida 2 ta element qo'shing",
		MsgAlreadySpinning:   "G'ildirak allaqachon aylanmoqda",
		MsgNotSpinning:       "G'ildirak aylanmayapti",
		MsgSpinMismatch:      "Bu aylanish allaqachon tugagan",
		MsgNoFact:            "Qiziqarli fakt yo'q, lekin baribir ajoyib!",
		MsgWheelNotFound:     "G'ildirak topilmadi",
		MsgRandomUnavailable: "Xavfsiz tasodifiylik mavjud emas, keyinroq urinib ko'ring",
	},
	language.Korean: {
		MsgResult:            "결과: %s",
		MsgNeedTwoItems:      "항목을 2개 이상 추가하세요",
		MsgAlreadySpinning:   "휠이 이미 돌고 있습니다",
		MsgNotSpinning:       "휠이 돌고 있지 않습니다",
		MsgSpinMismatch:      "그 회전은 이미 끝났습니다",
		MsgNoFact:            "재미있는 사실은 없지만 그래도 멋져요!",
		MsgWheelNotFound:     "휠을 찾을 수 없습니다",
		MsgRandomUnavailable: "안전한 난수를 사용할 수 없습니다. 나중에 다시 시도하세요",
	},
	language.Russian: {
		MsgResult:            "Результат: %s",
		MsgNeedTwoItems:      "Добавьте как минимум 2 элемента",
		MsgAlreadySpinning:   "Колесо уже вращается",
		MsgNotSpinning:       "Колесо не вращается",
		MsgSpinMismatch:      "Это вращение уже завершено",
		MsgNoFact:            "Интересного факта нет, но всё равно здорово!",
		MsgWheelNotFound:     "Колесо не найдено",
		MsgRandomUnavailable: "Надёжный источник случайности недоступен, попробуйте позже",
	},
	language.Spanish: {
		MsgResult:            "Resultado: %s",
		MsgNeedTwoItems:      "Agrega al menos 2 elementos",
		MsgAlreadySpinning:   "La rueda ya está girando",
		MsgNotSpinning:       "La rueda no está girando",
		MsgSpinMismatch:      "Ese giro ya terminó",
		MsgNoFact:            "No hay dato curioso, ¡pero sigue siendo genial!",
		MsgWheelNotFound:     "Rueda no encontrada",
		MsgRandomUnavailable: "La aleatoriedad segura no está disponible, inténtalo más tarde",
	},
}

func init() {
	if err := register(translations); err != nil {
		panic(err)
	}
}

func register(catalog map[language.Tag]map[string]string) error {
	for tag, msgs := range catalog {
		for key, msg := range msgs {
			if err := message.SetString(tag, key, msg); err != nil {
				return fmt.Errorf("register %s message %q: %w", tag, key, err)
			}
		}
	}
	return nil
}

// Default returns the default language tag.
func Default() language.Tag {
	return language.English
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// ParseTag matches value against the supported languages.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default(), false
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return Default(), false
	}
	return MatchTags([]language.Tag{parsed})
}

// MatchTags picks the best supported tag; the bool is false when nothing
// matched with at least low confidence.
func MatchTags(tags []language.Tag) (language.Tag, bool) {
	_, idx, conf := tagMatcher.Match(tags...)
	if conf == language.No {
		return Default(), false
	}
	return supportedTags[idx], true
}

// ResolveTag determines the best language tag for the request: the lang
// query parameter, then the preference cookie, then Accept-Language.
// The bool indicates whether the lang query param should be persisted as a cookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}

	if langValue := strings.TrimSpace(r.URL.Query().Get(LangParam)); langValue != "" {
		if tag, ok := ParseTag(langValue); ok {
			return tag, true
		}
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			tag, _ := MatchTags(tags)
			return tag, false
		}
	}

	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
