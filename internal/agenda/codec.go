package agenda

import (
	"errors"
	"strings"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

// ErrMalformedToken indicates a token that cannot be decoded.
var ErrMalformedToken = errors.New("agenda: malformed occurrence token")

const tokenSeparator = ":"

var kindTags = map[models.OccurrenceKind]string{
	models.KindTemplateVirtual:      "v",
	models.KindTemplateMaterialized: "m",
	models.KindAdHocClass:           "c",
	models.KindPersonalSession:      "p",
}

var tagKinds = map[string]models.OccurrenceKind{
	"v": models.KindTemplateVirtual,
	"m": models.KindTemplateMaterialized,
	"c": models.KindAdHocClass,
	"p": models.KindPersonalSession,
}

// Token is a decoded occurrence identifier. Virtual tokens carry TemplateID and
// Date; every other kind carries the persisted row ID.
type Token struct {
	Kind       models.OccurrenceKind
	ID         string
	TemplateID string
	Date       localdate.Date
}

// EncodeVirtual builds v:<templateID>:<YYYY-MM-DD>.
func EncodeVirtual(templateID string, d localdate.Date) string {
	return kindTags[models.KindTemplateVirtual] + tokenSeparator + templateID + tokenSeparator + d.String()
}

// EncodeRecord builds <tag>:<id> for persisted kinds.
func EncodeRecord(kind models.OccurrenceKind, id string) string {
	return kindTags[kind] + tokenSeparator + id
}

// String re-encodes the token.
func (t Token) String() string {
	if t.Kind == models.KindTemplateVirtual {
		return EncodeVirtual(t.TemplateID, t.Date)
	}
	return EncodeRecord(t.Kind, t.ID)
}

// Decode parses a token. The virtual form is split from the end: the last
// len(":YYYY-MM-DD") bytes are the date, everything between the tag and that suffix
// is the template ID, separators included.
func Decode(raw string) (Token, error) {
	tag, rest, ok := strings.Cut(raw, tokenSeparator)
	if !ok || rest == "" {
		return Token{}, ErrMalformedToken
	}
	kind, known := tagKinds[tag]
	if !known {
		return Token{}, ErrMalformedToken
	}
	if kind != models.KindTemplateVirtual {
		return Token{Kind: kind, ID: rest}, nil
	}

	suffix := len(tokenSeparator) + len(localdate.Layout)
	if len(rest) <= suffix {
		return Token{}, ErrMalformedToken
	}
	cut := len(rest) - suffix
	if rest[cut:cut+len(tokenSeparator)] != tokenSeparator {
		return Token{}, ErrMalformedToken
	}
	rawDate := rest[cut+len(tokenSeparator):]
	d, err := localdate.Parse(rawDate)
	if err != nil || d.String() != rawDate {
		return Token{}, ErrMalformedToken
	}
	return Token{Kind: kind, TemplateID: rest[:cut], Date: d}, nil
}
