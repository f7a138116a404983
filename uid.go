package announcer

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/coregx/announcer/model"
)

// uidEncoding keeps the "=" padding so UIDs match those of existing
// deployments and threads continue across an upgrade.
var uidEncoding = base32.StdEncoding

// UID identifies the thread an announcement belongs to: the same project,
// realm and target always produce the same value, so transports can thread
// and de-duplicate messages about one resource.
func UID(projectURL, realm, targetID string) string {
	return uidEncoding.EncodeToString([]byte(strings.Join([]string{projectURL, realm, targetID}, ",")))
}

// DecodeUID splits a UID back into project URL, realm and target id.
//
// Project URLs and target ids (wiki page names) may both contain commas, so
// the text is split around the first ",ticket," or ",wiki,". For any other
// realm neither the realm nor the target id may contain a comma.
func DecodeUID(uid string) (projectURL, realm, targetID string, err error) {
	raw, err := uidEncoding.DecodeString(strings.ToUpper(uid))
	if err != nil {
		return "", "", "", NewErrorWithCause(ErrCodeValidation, "malformed uid", err)
	}
	text := string(raw)

	at := -1
	for _, r := range []string{model.RealmTicket, model.RealmWiki} {
		if i := strings.Index(text, ","+r+","); i >= 0 && (at < 0 || i < at) {
			at, realm = i, r
		}
	}
	if at >= 0 {
		return text[:at], realm, text[at+len(realm)+2:], nil
	}

	parts := strings.Split(text, ",")
	if len(parts) < 3 {
		return "", "", "", NewError(ErrCodeValidation, fmt.Sprintf("malformed uid %q", uid))
	}
	n := len(parts)
	return strings.Join(parts[:n-2], ","), parts[n-2], parts[n-1], nil
}

// MessageID renders a UID as an RFC 5322 message id.
func MessageID(uid, host string) string {
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("<%s@%s>", uid, host)
}
