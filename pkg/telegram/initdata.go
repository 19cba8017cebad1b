// Package telegram signs and verifies the initData string a Telegram Mini
// App receives from its host.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmpty        = errors.New("initData is empty")
	ErrMissingHash  = errors.New("initData has no hash")
	ErrHashMismatch = errors.New("initData hash mismatch")
	ErrMissingUser  = errors.New("initData has no user")
	ErrExpired      = errors.New("initData is too old")
)

// Keys outside this set are dropped before the hash is checked.
var allowedKeys = map[string]bool{
	"query_id":  true,
	"user":      true,
	"auth_date": true,
	"hash":      true,
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

type InitData struct {
	QueryID  string
	User     User
	AuthDate time.Time
	Hash     string
}

// DataCheckString joins every key=value pair except hash, sorted by key,
// with newlines.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	return strings.Join(pairs, "\n")
}

func Hash(values url.Values, botToken string) string {
	secret := hmacSHA256([]byte("WebAppData"), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(DataCheckString(values))))
}

// Sign builds an initData string the way the Telegram client would hand it
// to the mini-app. Used by the development API and by tests.
func Sign(user User, queryID string, authDate time.Time, botToken string) (string, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user: %w", err)
	}

	values := url.Values{}
	if queryID != "" {
		values.Set("query_id", queryID)
	}
	values.Set("user", string(userJSON))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", Hash(values, botToken))

	return values.Encode(), nil
}

// Validate checks the signature of raw against botToken and decodes it.
// maxAge <= 0 disables the auth_date freshness check.
func Validate(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmpty
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed initData: %w", err)
	}

	var dropped []string
	for k := range values {
		if !allowedKeys[k] {
			dropped = append(dropped, k)
			delete(values, k)
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		log.Printf("[Telegram] ignoring unknown initData keys: %v", dropped)
	}

	received := values.Get("hash")
	if received == "" {
		return nil, ErrMissingHash
	}

	want, _ := hex.DecodeString(Hash(values, botToken))
	got, err := hex.DecodeString(received)
	if err != nil || !hmac.Equal(want, got) {
		return nil, ErrHashMismatch
	}

	data := &InitData{
		QueryID: values.Get("query_id"),
		Hash:    received,
	}

	if ts, err := strconv.ParseInt(values.Get("auth_date"), 10, 64); err == nil {
		data.AuthDate = time.Unix(ts, 0)
	}
	if maxAge > 0 && (data.AuthDate.IsZero() || now.Sub(data.AuthDate) > maxAge) {
		return nil, ErrExpired
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, ErrMissingUser
	}
	if err := json.Unmarshal([]byte(userJSON), &data.User); err != nil || data.User.ID == 0 {
		return nil, ErrMissingUser
	}

	return data, nil
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}
