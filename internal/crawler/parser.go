package crawler

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodePayload returns body as a JSON document. When the body does not
// parse as-is it is read again as text: BOM stripped, Windows-1252
// transcoded, and unwrapped from an HTML page if the JSON was served
// inside one.
func decodePayload(body []byte) (json.RawMessage, error) {
	var doc json.RawMessage
	if utf8.Valid(body) {
		if err := json.Unmarshal(body, &doc); err == nil {
			return doc, nil
		}
	}

	text := bytes.TrimPrefix(body, utf8BOM)
	if !utf8.Valid(text) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(text)
		if err == nil {
			text = decoded
		}
	}
	text = bytes.TrimSpace(text)
	if len(text) == 0 {
		return nil, errors.New("response body is empty")
	}
	if json.Valid(text) {
		return json.RawMessage(text), nil
	}

	if text[0] == '<' {
		if doc, ok := jsonFromHTML(text); ok {
			return doc, nil
		}
	}
	return nil, errors.New("response is not JSON")
}

// jsonFromHTML looks for a JSON document in the text of the usual
// wrapper elements.
func jsonFromHTML(page []byte) (json.RawMessage, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, false
	}
	var found json.RawMessage
	doc.Find("pre, body").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := bytes.TrimSpace([]byte(s.Text()))
		if len(candidate) > 0 && json.Valid(candidate) {
			found = candidate
			return false
		}
		return true
	})
	return found, found != nil
}

func isEmptyPayload(doc json.RawMessage) bool {
	switch string(bytes.TrimSpace(doc)) {
	case "", "null", "[]", "{}", `""`:
		return true
	}
	return false
}
