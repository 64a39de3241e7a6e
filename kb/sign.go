package kb

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Volcengine-style HMAC-SHA256 request signing for the Viking knowledge
// base API. There is no Go SDK for this service, so the signature is
// computed by hand.
const (
	signRegion  = "cn-north-1"
	signService = "air"
)

type signer struct {
	ak string
	sk string
}

func (s signer) sign(req *http.Request, body []byte) {
	now := time.Now().UTC()
	xDate := now.Format("20060102T150405Z")
	shortDate := now.Format("20060102")

	payloadHash := hexSHA256(body)
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("X-Date", xDate)
	req.Header.Set("X-Content-Sha256", payloadHash)

	signedHeaders := "host;x-content-sha256;x-date"
	canonicalHeaders := strings.Join([]string{
		"host:" + req.URL.Host,
		"x-content-sha256:" + payloadHash,
		"x-date:" + xDate,
	}, "\n") + "\n"

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.Path,
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := fmt.Sprintf("%s/%s/%s/request", shortDate, signRegion, signService)
	stringToSign := strings.Join([]string{
		"HMAC-SHA256",
		xDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	kDate := hmacSHA256([]byte(s.sk), shortDate)
	kRegion := hmacSHA256(kDate, signRegion)
	kService := hmacSHA256(kRegion, signService)
	kSigning := hmacSHA256(kService, "request")
	signature := hex.EncodeToString(hmacSHA256(kSigning, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.ak, scope, signedHeaders, signature,
	))
}

func hexSHA256(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
