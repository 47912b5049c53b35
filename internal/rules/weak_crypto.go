package rules

import (
	"fmt"
	"regexp"

	"github.com/aleister1102/secwatch/internal/models"
)

const RuleWeakCrypto = "weak-crypto"

var weakCryptoCalls = []callPattern{
	{name: "MD5/SHA1 hash (Node)", regex: regexp.MustCompile(`(?i)\bcreateHash\s*\(\s*["'](?:md4|md5|sha1)["']`)},
	{name: "DES/RC4/ECB cipher (Node)", regex: regexp.MustCompile(`(?i)\bcreateCipher(?:iv)?\s*\(\s*["'](?:des[a-z0-9-]*|rc4[a-z0-9-]*|bf[a-z0-9-]*|[a-z0-9-]*-ecb)["']`)},
	{name: "MD5/SHA1 hash (Python)", regex: regexp.MustCompile(`\bhashlib\.(?:md5|sha1)\s*\(`)},
	{name: "MD5/SHA1 hash (Python)", regex: regexp.MustCompile(`(?i)\bhashlib\.new\s*\(\s*["'](?:md5|sha1)["']`)},
	{name: "DES/RC4 cipher (Python)", regex: regexp.MustCompile(`\b(?:DES|DES3|ARC4|Blowfish)\.new\s*\(`)},
	{name: "MD5/SHA1 hash (Go)", regex: regexp.MustCompile(`\b(?:md5|sha1)\.(?:New|Sum)\s*\(`)},
	{name: "DES/RC4 cipher (Go)", regex: regexp.MustCompile(`\b(?:des\.New(?:TripleDES)?Cipher|rc4\.NewCipher)\s*\(`)},
	{name: "MD5/SHA1 digest (Java)", regex: regexp.MustCompile(`(?i)\bMessageDigest\.getInstance\s*\(\s*"(?:MD5|SHA-?1)"`)},
	{name: "DES/RC4/ECB cipher (Java)", regex: regexp.MustCompile(`\bCipher\.getInstance\s*\(\s*"(?:DES|DESede|RC4|ARCFOUR|[A-Za-z0-9]+/ECB)[^"]*"`)},
	{name: "MD5/SHA1 hash (.NET)", regex: regexp.MustCompile(`\b(?:MD5|SHA1)\.Create\s*\(`)},
}

// WeakCryptoRule flags deprecated hash and cipher primitives and annotates the line.
type WeakCryptoRule struct {
	baseRule
}

func NewWeakCryptoRule() *WeakCryptoRule {
	return &WeakCryptoRule{baseRule{
		id:          RuleWeakCrypto,
		description: "Deprecated hash or cipher primitive (MD5, SHA1, DES, RC4, ECB)",
		severity:    models.SeverityMedium,
	}}
}

func (r *WeakCryptoRule) Scan(content, filePath string) ([]models.Alert, error) {
	return scanCalls(r.baseRule, weakCryptoCalls, content, filePath,
		func(name string) (string, string) {
			return fmt.Sprintf("Weak cryptographic primitive: %s", name),
				"weak cryptographic primitive, use SHA-256 or AES-GCM"
		}, nil)
}
