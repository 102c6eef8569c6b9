// Package signer implements the Query protocol's version 2 style request
// signature: an HMAC-SHA256 over the canonicalized argument list, carried
// as additional query arguments alongside the request's own.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sort"
	"strings"

	"github.com/cloudmere/cloudmere-go/internal/apiquery"
)

var (
	ErrMissingAccessKey = errors.New("missing access key id")
	ErrMissingSecretKey = errors.New("missing secret access key")
)

const (
	signatureVersion = "2"
	signatureMethod  = "HmacSHA256"
)

type Signer struct {
	accessKeyID     string
	secretAccessKey string
}

func New(accessKeyID, secretAccessKey string) (*Signer, error) {
	if accessKeyID == "" {
		return nil, ErrMissingAccessKey
	}
	if secretAccessKey == "" {
		return nil, ErrMissingSecretKey
	}
	return &Signer{accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}, nil
}

// Sign returns args extended with the AccessKeyId, SignatureVersion,
// SignatureMethod and Signature arguments. The input list is not modified.
func (s *Signer) Sign(method, host, path string, args apiquery.Args) apiquery.Args {
	signed := make(apiquery.Args, 0, len(args)+4)
	signed = append(signed,
		apiquery.Arg{Key: "AccessKeyId", Value: s.accessKeyID},
		apiquery.Arg{Key: "SignatureVersion", Value: signatureVersion},
		apiquery.Arg{Key: "SignatureMethod", Value: signatureMethod},
	)
	signed = append(signed, args...)

	mac := hmac.New(sha256.New, []byte(s.secretAccessKey))
	mac.Write([]byte(StringToSign(method, host, path, signed)))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return append(signed, apiquery.Arg{Key: "Signature", Value: signature})
}

// StringToSign builds the canonical request representation:
//
//	METHOD \n host \n path \n canonical-query
//
// where the canonical query is the escaped arguments sorted by key and
// joined with '&'. The Signature argument itself is never part of it.
func StringToSign(method, host, path string, args apiquery.Args) string {
	if path == "" {
		path = "/"
	}
	return strings.Join([]string{
		strings.ToUpper(method),
		host,
		path,
		CanonicalQuery(args),
	}, "\n")
}

func CanonicalQuery(args apiquery.Args) string {
	sorted := make(apiquery.Args, len(args))
	copy(sorted, args)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	var b strings.Builder
	for i, arg := range sorted {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(apiquery.EscapeURI(arg.Key))
		b.WriteByte('=')
		b.WriteString(apiquery.EscapeURI(arg.Value))
	}
	return b.String()
}
