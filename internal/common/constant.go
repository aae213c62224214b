// Package common contains shared constants and sentinel errors used across
// the voicetranslator services.
package common

// SessionCookieName is the cookie that carries the signed session token
// issued by the web tier.
const SessionCookieName = "session"

// FlashCookieName is the cookie that carries a one-shot flash message
// between a redirect and the page it lands on.
const FlashCookieName = "flash"

// AllowedAudioExtensions lists the upload extensions accepted by both the
// web tier and the processing service.
var AllowedAudioExtensions = []string{"wav", "mp3", "m4a", "flac", "ogg"}
