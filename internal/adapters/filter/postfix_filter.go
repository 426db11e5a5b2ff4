package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/spam-classifier/internal/core"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is prepended to spam subjects when none is configured
const DefaultSubjectPrefix = "[**SPAM**] "

const analysisTimeout = 10 * time.Second

// PostfixConfig holds the content filter settings
type PostfixConfig struct {
	ListenAddr    string
	PostfixAddr   string
	BlockSpam     bool
	SpamHeader    string
	ScoreHeader   string
	ReasonHeader  string
	ModelHeader   string
	SubjectPrefix string
	ModifySubject bool
}

// PostfixFilter implements a Postfix content filter. Messages arrive over
// SMTP, are scored and then re-injected into Postfix with verdict headers.
type PostfixFilter struct {
	service  *core.SpamFilterService
	logger   *zap.Logger
	cfg      PostfixConfig
	server   *smtp.Server
	listener net.Listener
	forward  func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(service *core.SpamFilterService, logger *zap.Logger, cfg PostfixConfig) *PostfixFilter {
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.ModelHeader == "" {
		cfg.ModelHeader = "X-Spam-Model"
	}

	f := &PostfixFilter{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}
	f.forward = f.sendToPostfix
	return f
}

// Start binds the listen address and serves SMTP in the background
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.cfg.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	l, err := net.Listen("tcp", f.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddr, err)
	}
	f.listener = l

	f.logger.Info("Postfix filter starting",
		zap.String("address", l.Addr().String()),
		zap.String("postfix_address", f.cfg.PostfixAddr))

	go func() {
		if err := f.server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// Addr returns the bound listen address, or nil before Start
func (f *PostfixFilter) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// ProcessEmail analyzes an email without touching the SMTP path
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	return f.service.AnalyzeEmail(ctx, email)
}

// sendToPostfix re-injects the processed message into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.cfg.PostfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// the message is already queued
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// rewriteMessage prepends the verdict headers to raw, drops any incoming
// copies of them and optionally tags the subject. The body is kept byte for
// byte so MIME parts and signatures survive.
func (f *PostfixFilter) rewriteMessage(raw []byte, subject string, result *core.SpamAnalysisResult) []byte {
	header, body := splitMessage(raw)

	drop := map[string]bool{
		strings.ToLower(f.cfg.SpamHeader):   true,
		strings.ToLower(f.cfg.ScoreHeader):  true,
		strings.ToLower(f.cfg.ReasonHeader): true,
		strings.ToLower(f.cfg.ModelHeader):  true,
	}

	newSubject := ""
	if result.IsSpam && f.cfg.ModifySubject && f.cfg.SubjectPrefix != "" && !strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
		newSubject = mime.QEncoding.Encode("utf-8", f.cfg.SubjectPrefix+subject)
		drop["subject"] = true
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %t\r\n", f.cfg.SpamHeader, result.IsSpam)
	fmt.Fprintf(&out, "%s: %.4f\r\n", f.cfg.ScoreHeader, result.Score)
	fmt.Fprintf(&out, "%s: %s\r\n", f.cfg.ReasonHeader, headerValue(result.Explanation))
	fmt.Fprintf(&out, "%s: %s\r\n", f.cfg.ModelHeader, headerValue(result.ModelUsed))
	if newSubject != "" {
		fmt.Fprintf(&out, "Subject: %s\r\n", newSubject)
	}

	skipping := false
	for _, line := range splitLines(header) {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			// folded continuation of the previous field
			if !skipping {
				out.Write(line)
			}
			continue
		}
		name, _, _ := bytes.Cut(line, []byte(":"))
		skipping = drop[strings.ToLower(strings.TrimSpace(string(name)))]
		if !skipping {
			out.Write(line)
		}
	}

	out.WriteString("\r\n")
	out.Write(body)
	return out.Bytes()
}

// splitMessage separates the header block, including its final line break,
// from the body
func splitMessage(raw []byte) (header, body []byte) {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf+2], raw[crlf+4:]
	case lf >= 0:
		return raw[:lf+1], raw[lf+2:]
	default:
		return raw, nil
	}
}

// splitLines splits b after each LF, keeping line terminators
func splitLines(b []byte) [][]byte {
	var lines [][]byte
	for len(b) > 0 {
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			lines = append(lines, append(b[:len(b):len(b)], '\r', '\n'))
			break
		}
		lines = append(lines, b[:i+1])
		b = b[i+1:]
	}
	return lines
}

// headerValue flattens s onto one line so it cannot inject header fields
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message and either rejects it or forwards it to Postfix.
// A message that cannot be scored is deferred with a temporary failure so
// Postfix retries once a model is available.
func (s *smtpSession) Data(r io.Reader) error {
	logger := s.filter.logger

	email, _, raw, err := ParseEmail(r)
	if err != nil {
		logger.Error("Failed to parse email message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}
	if s.sender != "" {
		email.From = s.sender
	}
	if len(s.recipients) > 0 {
		email.To = s.recipients
	}

	senderDomain := "unknown"
	if _, domain, ok := strings.Cut(email.From, "@"); ok && domain != "" {
		senderDomain = domain
	}

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	result, err := s.filter.service.AnalyzeEmail(ctx, email)
	if err != nil {
		logger.Error("Failed to analyze email",
			zap.Error(err),
			zap.String("sender", email.From),
			zap.String("sender_domain", senderDomain),
			zap.Bool("model_missing", errors.Is(err, core.ErrMissingArtifact)))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Spam classification unavailable, try again later",
		}
	}

	if result.IsSpam && s.filter.cfg.BlockSpam {
		logger.Info("Rejecting spam email",
			zap.String("from", email.From),
			zap.String("sender_domain", senderDomain),
			zap.Float64("score", result.Score),
			zap.String("reason", result.Explanation),
			zap.String("model", result.ModelUsed))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %.2f)", result.Score),
		}
	}

	message := s.filter.rewriteMessage(raw, email.Subject, result)

	if s.filter.cfg.PostfixAddr == "" {
		logger.Warn("Postfix forwarding disabled, message dropped", zap.String("sender", email.From))
	} else if err := s.filter.forward(s.sender, s.recipients, message); err != nil {
		logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", email.From))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 4, 0},
			Message:      "Re-injection failed, try again later",
		}
	}

	logger.Info("Processed email",
		zap.String("from", email.From),
		zap.String("sender_domain", senderDomain),
		zap.Bool("is_spam", result.IsSpam),
		zap.Float64("score", result.Score),
		zap.String("model", result.ModelUsed))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
