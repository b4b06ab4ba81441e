package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const publicHost = "https://storage.googleapis.com"

// signer produces V2 signed GET URLs so clients can fetch upload images
// without proxying the bytes through the API.
type signer struct {
	email string
	key   *rsa.PrivateKey
}

func (s *signer) readURL(bucket, object string, now time.Time, ttl time.Duration) (string, error) {
	if s == nil || s.key == nil {
		return "", errors.New("gcs signing credentials not configured")
	}
	if bucket == "" || object == "" {
		return "", errors.New("bucket and object are required")
	}
	if ttl <= 0 {
		return "", errors.New("signed url ttl must be positive")
	}

	expires := strconv.FormatInt(now.Add(ttl).Unix(), 10)
	stringToSign := strings.Join([]string{http.MethodGet, "", "", expires, "/" + bucket + "/" + object}, "\n")
	digest := sha256.Sum256([]byte(stringToSign))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}

	q := url.Values{
		"GoogleAccessId": {s.email},
		"Expires":        {expires},
		"Signature":      {base64.StdEncoding.EncodeToString(sig)},
	}
	return publicURL(bucket, object) + "?" + q.Encode(), nil
}

func publicURL(bucket, object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return publicHost + "/" + bucket + "/" + strings.Join(parts, "/")
}
