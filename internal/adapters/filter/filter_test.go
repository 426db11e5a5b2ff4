package filter

import (
	"bytes"
	"context"
	"errors"
	"net/mail"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-smtp"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClassifier struct {
	score float64
	err   error
	texts []string
}

func (s *stubClassifier) Classify(_ context.Context, text string) (*core.SpamAnalysisResult, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	return &core.SpamAnalysisResult{
		Score:       s.score,
		Explanation: "classified\r\nInjected: header",
		AnalyzedAt:  time.Now(),
		ModelUsed:   "model-1",
	}, nil
}

func (s *stubClassifier) ModelID() string {
	return "model-1"
}

func newService(c core.Classifier) *core.SpamFilterService {
	return core.NewSpamFilterService(c, nil, zap.NewNop(), false, 0, 0, nil, nil, 0)
}

type capturedMail struct {
	sender     string
	recipients []string
	data       []byte
}

func newTestFilter(c core.Classifier, cfg PostfixConfig) (*PostfixFilter, *[]capturedMail) {
	if cfg.SpamHeader == "" {
		cfg.SpamHeader = "X-Spam-Status"
		cfg.ScoreHeader = "X-Spam-Score"
		cfg.ReasonHeader = "X-Spam-Reason"
	}
	if cfg.PostfixAddr == "" {
		cfg.PostfixAddr = "localhost:10026"
	}
	f := NewPostfixFilter(newService(c), zap.NewNop(), cfg)
	var sent []capturedMail
	f.forward = func(sender string, recipients []string, data []byte) error {
		sent = append(sent, capturedMail{sender, recipients, data})
		return nil
	}
	return f, &sent
}

const plainMessage = "From: Alice <alice@example.org>\r\n" +
	"To: bob@example.net\r\n" +
	"Subject: =?UTF-8?Q?Caf=C3=A9_prize?=\r\n" +
	"X-Spam-Status: false\r\n" +
	"\r\n" +
	"Claim your free prize now\r\n"

func deliver(t *testing.T, f *PostfixFilter, message string) error {
	t.Helper()
	s := &smtpSession{filter: f}
	require.NoError(t, s.Mail("alice@example.org", nil))
	require.NoError(t, s.Rcpt("bob@example.net", nil))
	return s.Data(strings.NewReader(message))
}

func TestDecodeEncodedHeader(t *testing.T) {
	decoded, err := decodeEncodedHeader("=?UTF-8?Q?Caf=C3=A9_prize?=")
	require.NoError(t, err)
	assert.Equal(t, "Café prize", decoded)

	decoded, err = decodeEncodedHeader("=?ISO-8859-1?Q?Caf=E9?=")
	require.NoError(t, err)
	assert.Equal(t, "Café", decoded)

	decoded, err = decodeEncodedHeader("plain subject")
	require.NoError(t, err)
	assert.Equal(t, "plain subject", decoded)
}

func TestParseEmailPlain(t *testing.T) {
	email, msg, raw, err := ParseEmail(strings.NewReader(plainMessage))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, plainMessage, string(raw))
	assert.Equal(t, "alice@example.org", email.From)
	assert.Equal(t, []string{"bob@example.net"}, email.To)
	assert.Equal(t, "Café prize", email.Subject)
	assert.Equal(t, "Claim your free prize now\r\n", email.Body)
}

func TestExtractTextPrefersPlainPart(t *testing.T) {
	message := "Content-Type: multipart/alternative; boundary=b1\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=E9 lunch\r\n" +
		"--b1--\r\n"

	msg, err := mail.ReadMessage(strings.NewReader(message))
	require.NoError(t, err)
	text, err := extractTextFromMessage(msg)
	require.NoError(t, err)
	assert.Contains(t, text, "café lunch")
	assert.NotContains(t, text, "html version")
}

func TestExtractTextFallsBackToHTML(t *testing.T) {
	message := "Content-Type: multipart/mixed; boundary=outer\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: text/html\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"PGI+V2luPC9i\r\nPiBtb25leQ==\r\n" +
		"--outer\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-binary\r\n" +
		"--outer--\r\n"

	msg, err := mail.ReadMessage(strings.NewReader(message))
	require.NoError(t, err)
	text, err := extractTextFromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "Win money", strings.TrimSpace(text))
}

func TestDataForwardsWithHeaders(t *testing.T) {
	c := &stubClassifier{score: -0.5}
	f, sent := newTestFilter(c, PostfixConfig{})

	require.NoError(t, deliver(t, f, plainMessage))
	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Equal(t, "alice@example.org", got.sender)
	assert.Equal(t, []string{"bob@example.net"}, got.recipients)

	out := string(got.data)
	assert.True(t, strings.HasPrefix(out, "X-Spam-Status: false\r\nX-Spam-Score: -0.5000\r\n"))
	assert.Contains(t, out, "X-Spam-Reason: classified Injected: header\r\n")
	assert.Contains(t, out, "X-Spam-Model: model-1\r\n")
	assert.Equal(t, 1, strings.Count(out, "X-Spam-Status:"))
	assert.Contains(t, out, "Subject: =?UTF-8?Q?Caf=C3=A9_prize?=\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nClaim your free prize now\r\n"))
	assert.Equal(t, []string{"Claim your free prize now\r\n"}, c.texts)
}

func TestDataTagsSpamSubject(t *testing.T) {
	f, sent := newTestFilter(&stubClassifier{score: 1.5}, PostfixConfig{ModifySubject: true})

	require.NoError(t, deliver(t, f, plainMessage))
	require.Len(t, *sent, 1)

	msg, err := mail.ReadMessage(bytes.NewReader((*sent)[0].data))
	require.NoError(t, err)
	subject, err := decodeEncodedHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSubjectPrefix+"Café prize", subject)
	assert.Len(t, msg.Header["Subject"], 1)
	assert.Equal(t, "true", msg.Header.Get("X-Spam-Status"))
}

func TestDataRejectsSpamWhenBlocking(t *testing.T) {
	f, sent := newTestFilter(&stubClassifier{score: 2}, PostfixConfig{BlockSpam: true})

	err := deliver(t, f, plainMessage)
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Empty(t, *sent)
}

func TestDataDefersWithoutModel(t *testing.T) {
	c := &stubClassifier{err: core.ErrMissingArtifact}
	f, sent := newTestFilter(c, PostfixConfig{})

	err := deliver(t, f, plainMessage)
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 451, smtpErr.Code)
	assert.Empty(t, *sent)
}

func TestDataDefersWhenForwardFails(t *testing.T) {
	f, _ := newTestFilter(&stubClassifier{score: -1}, PostfixConfig{})
	f.forward = func(string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := deliver(t, f, plainMessage)
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 451, smtpErr.Code)
}

func TestSplitMessage(t *testing.T) {
	header, body := splitMessage([]byte("A: 1\nB: 2\n\nbody\n"))
	assert.Equal(t, "A: 1\nB: 2\n", string(header))
	assert.Equal(t, "body\n", string(body))

	header, body = splitMessage([]byte("A: 1"))
	assert.Equal(t, "A: 1", string(header))
	assert.Nil(t, body)
}

func TestRewriteDropsFoldedHeaders(t *testing.T) {
	f, _ := newTestFilter(&stubClassifier{}, PostfixConfig{})
	raw := []byte("X-Spam-Reason: forged\r\n continued\r\nFrom: a@b.c\r\n\r\nbody")
	out := string(f.rewriteMessage(raw, "", &core.SpamAnalysisResult{ModelUsed: "m"}))

	assert.NotContains(t, out, "forged")
	assert.NotContains(t, out, "continued")
	assert.Contains(t, out, "From: a@b.c\r\n\r\nbody")
}

func TestCliFilterPrintsVerdict(t *testing.T) {
	var out bytes.Buffer
	f, err := NewCliFilter(newService(&stubClassifier{score: 0.25}), zap.NewNop(), false, &out)
	require.NoError(t, err)

	result, err := f.ProcessEmail(context.Background(), &core.Email{Body: "win money"})
	require.NoError(t, err)
	assert.True(t, result.IsSpam)
	assert.Equal(t, "SPAM\n", out.String())

	out.Reset()
	f, err = NewCliFilter(newService(&stubClassifier{score: -0.25}), zap.NewNop(), true, &out)
	require.NoError(t, err)
	_, err = f.ProcessEmail(context.Background(), &core.Email{Subject: "lunch", Body: "see you"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "NOT SPAM\n")
	assert.Contains(t, out.String(), "Model: model-1")
}

func TestCliFilterPreviewKeepsRunes(t *testing.T) {
	var out bytes.Buffer
	f, err := NewCliFilter(newService(&stubClassifier{score: -1}), zap.NewNop(), true, &out)
	require.NoError(t, err)

	body := strings.Repeat("a", previewSize-1) + "é and more"
	_, err = f.ProcessEmail(context.Background(), &core.Email{Body: body})
	require.NoError(t, err)

	assert.True(t, utf8.Valid(out.Bytes()))
	assert.Contains(t, out.String(), strings.Repeat("a", previewSize-1)+"...")
}

func TestCliFilterReturnsErrors(t *testing.T) {
	var out bytes.Buffer
	f, err := NewCliFilter(newService(&stubClassifier{err: core.ErrMissingArtifact}), zap.NewNop(), false, &out)
	require.NoError(t, err)

	_, err = f.ProcessEmail(context.Background(), &core.Email{Body: "x"})
	assert.ErrorIs(t, err, core.ErrMissingArtifact)
	assert.Empty(t, out.String())
}
