package filter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mikey/spam-classifier/internal/core"
	"golang.org/x/text/encoding/htmlindex"
)

// maxMultipartDepth bounds recursion into nested multipart bodies
const maxMultipartDepth = 5

var (
	htmlTagPattern = regexp.MustCompile(`(?s)<[^>]*>`)
	headerDecoder  = &mime.WordDecoder{CharsetReader: charsetReader}
)

// ParseEmail reads an RFC 5322 message into an Email whose Body holds the
// decoded text content
func ParseEmail(r io.Reader) (*core.Email, *mail.Message, []byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read message: %w", err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse message: %w", err)
	}

	// the body reader is consumed by extraction, keep a fresh one for callers
	text, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	email := &core.Email{
		Headers: make(map[string][]string, len(msg.Header)),
		Body:    text,
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}
	if subject := msg.Header.Get("Subject"); subject != "" {
		if decoded, err := decodeEncodedHeader(subject); err == nil {
			email.Subject = decoded
		} else {
			email.Subject = subject
		}
	}
	if from, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		email.From = from.Address
	}
	if to, err := msg.Header.AddressList("To"); err == nil {
		for _, addr := range to {
			email.To = append(email.To, addr.Address)
		}
	}

	return email, msg, raw, nil
}

// decodeEncodedHeader decodes RFC 2047 encoded words such as =?UTF-8?B?...?=
func decodeEncodedHeader(value string) (string, error) {
	return headerDecoder.DecodeHeader(value)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// extractTextFromMessage returns the text content of msg. For multipart
// messages text/plain parts are preferred and text/html parts are used with
// tags stripped when no plain part exists.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	return extractPart(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0)
}

func extractPart(contentType, transferEncoding string, body io.Reader, depth int) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxMultipartDepth {
			return readBody(body, transferEncoding, params["charset"])
		}
		return extractMultipart(multipart.NewReader(body, boundary), depth)
	}

	text, err := readBody(body, transferEncoding, params["charset"])
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		text = stripHTML(text)
	}
	return text, nil
}

func extractMultipart(mr *multipart.Reader, depth int) (string, error) {
	var plain, html bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// keep what was read before the malformed part
			break
		}

		partType := part.Header.Get("Content-Type")
		mediaType, _, _ := mime.ParseMediaType(partType)
		switch {
		case mediaType == "" || mediaType == "text/plain":
			text, err := extractPart(partType, part.Header.Get("Content-Transfer-Encoding"), part, depth+1)
			if err == nil {
				plain.WriteString(text)
				plain.WriteString("\n")
			}
		case mediaType == "text/html":
			text, err := extractPart(partType, part.Header.Get("Content-Transfer-Encoding"), part, depth+1)
			if err == nil {
				html.WriteString(text)
				html.WriteString("\n")
			}
		case strings.HasPrefix(mediaType, "multipart/"):
			text, err := extractPart(partType, part.Header.Get("Content-Transfer-Encoding"), part, depth+1)
			if err == nil {
				plain.WriteString(text)
			}
		}
		// attachments and other parts are skipped
	}

	if plain.Len() > 0 {
		return plain.String(), nil
	}
	return html.String(), nil
}

func readBody(body io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, newlineStripper{body})
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}

	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		if decoded, err := charsetReader(charset, body); err == nil {
			body = decoded
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func stripHTML(s string) string {
	return strings.Join(strings.Fields(htmlTagPattern.ReplaceAllString(s, " ")), " ")
}

// newlineStripper drops CR and LF so wrapped base64 bodies decode
type newlineStripper struct {
	r io.Reader
}

func (n newlineStripper) Read(p []byte) (int, error) {
	for {
		count, err := n.r.Read(p)
		kept := 0
		for _, b := range p[:count] {
			if b != '\r' && b != '\n' {
				p[kept] = b
				kept++
			}
		}
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}
