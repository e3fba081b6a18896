package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the X-Razorpay-Signature header against the HMAC-SHA256
// of the raw, unparsed request body. The body must not be re-serialized before
// verification — signing is over the exact bytes Razorpay sent.
// Returns false on empty secret or signature, never errors.
func VerifySignature(rawBody []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
