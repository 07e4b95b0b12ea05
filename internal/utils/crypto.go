package utils

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

func SHA256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// MD5Hex is only used for the legacy client handshake, which predates this API.
func MD5Hex(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// LegacySecureHash is the SEC value legacy clients send: md5(secret + yyyyMMdd).
func LegacySecureHash(secret string, day time.Time) string {
	return MD5Hex(secret + day.Format("20060102"))
}

// LegacyPasswordHash is the PW value legacy clients send.
func LegacyPasswordHash(password string) string {
	return MD5Hex(password)
}
