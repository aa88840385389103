package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookieName carries one-shot messages across a redirect
const FlashCookieName = "storefront_flash"

const flashMaxAge = 300

// Flash queues message for the next rendered view
func Flash(w http.ResponseWriter, r *http.Request, message string) {
	messages := append(readFlashes(r), message)

	encoded, err := json.Marshal(messages)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(encoded),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RedirectWithFlash queues message and answers 303 See Other to url
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, url, message string) {
	Flash(w, r, message)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// PopFlashes returns the queued messages and clears them
func PopFlashes(w http.ResponseWriter, r *http.Request) []string {
	messages := readFlashes(r)
	if len(messages) == 0 {
		return []string{}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return messages
}

func readFlashes(r *http.Request) []string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	var messages []string
	if err := json.Unmarshal(decoded, &messages); err != nil {
		return nil
	}
	return messages
}
