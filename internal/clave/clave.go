// Package clave builds and parses the 50-digit key that identifies an
// electronic tax document. The key is generated once at emission and is
// immutable afterwards; every segment is a fixed-width numeric field.
package clave

import (
	"errors"
	"strings"
	"time"

	"github.com/facturacr/facturacr/internal/hacienda"
)

const (
	// Length is the regulated width of a document key.
	Length = 50

	// CountryCode prefixes every key issued under Costa Rican jurisdiction.
	CountryCode = "506"

	// SituationNormal marks a document issued online under normal conditions.
	// Contingency and offline issuance are not supported by this backend.
	SituationNormal = "1"

	securityLength = 8
	issuerLength   = 12
)

var (
	ErrInvalidClave        = errors.New("invalid_clave")
	ErrInvalidIssuer       = errors.New("invalid_issuer_identification")
	ErrInvalidConsecutive  = errors.New("invalid_consecutive")
	ErrInvalidSecurityCode = errors.New("invalid_security_code")
)

// Components are the parsed fixed-width segments of a document key.
type Components struct {
	Country    string
	Day        string
	Month      string
	Year       string
	Issuer     string
	Branch     string
	Terminal   string
	DocType    hacienda.DocumentType
	Sequential string
	Situation  string
	Security   string
}

// Consecutive reassembles the embedded 20-digit consecutive number.
func (c Components) Consecutive() string {
	return c.Branch + c.Terminal + string(c.DocType) + c.Sequential
}

// NormalizeIssuer strips separators from an issuer identification and
// left-pads it with zeros to the 12-digit field width. Identifications
// longer than 12 digits are rejected rather than truncated.
func NormalizeIssuer(id string) (string, error) {
	id = strings.ReplaceAll(id, "-", "")
	if id == "" || len(id) > issuerLength || !isDigits(id) {
		return "", ErrInvalidIssuer
	}
	return strings.Repeat("0", issuerLength-len(id)) + id, nil
}

// Build assembles a document key from its parts. The emission date is taken
// in UTC. The issuer must already be normalized and the consecutive must be
// the full 20-digit string; the result is 50 digits by construction.
func Build(issuer string, emission time.Time, consecutive, security string) (string, error) {
	if len(issuer) != issuerLength || !isDigits(issuer) {
		return "", ErrInvalidIssuer
	}
	if len(consecutive) != 20 || !isDigits(consecutive) {
		return "", ErrInvalidConsecutive
	}
	if len(security) != securityLength || !isDigits(security) {
		return "", ErrInvalidSecurityCode
	}

	utc := emission.UTC()
	var b strings.Builder
	b.Grow(Length)
	b.WriteString(CountryCode)
	b.WriteString(pad2(utc.Day()))
	b.WriteString(pad2(int(utc.Month())))
	b.WriteString(pad2(utc.Year() % 100))
	b.WriteString(issuer)
	b.WriteString(consecutive)
	b.WriteString(SituationNormal)
	b.WriteString(security)
	return b.String(), nil
}

// Parse slices a document key back into its components. The segments
// round-trip: parsing a built key reproduces every input field.
func Parse(key string) (Components, error) {
	if len(key) != Length || !isDigits(key) {
		return Components{}, ErrInvalidClave
	}
	if key[:3] != CountryCode {
		return Components{}, ErrInvalidClave
	}

	c := Components{
		Country:    key[0:3],
		Day:        key[3:5],
		Month:      key[5:7],
		Year:       key[7:9],
		Issuer:     key[9:21],
		Branch:     key[21:24],
		Terminal:   key[24:29],
		DocType:    hacienda.DocumentType(key[29:31]),
		Sequential: key[31:41],
		Situation:  key[41:42],
		Security:   key[42:50],
	}
	if !c.DocType.Valid() {
		return Components{}, ErrInvalidClave
	}
	return c, nil
}

// Valid reports whether key is a well-formed document key.
func Valid(key string) bool {
	_, err := Parse(key)
	return err == nil
}

func pad2(n int) string {
	return string([]byte{'0' + byte(n/10), '0' + byte(n%10)})
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
