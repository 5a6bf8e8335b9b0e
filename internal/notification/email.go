package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"laundrylink-backend/config"
	"laundrylink-backend/internal/model"
)

// ErrNotConfigured is returned when the staff member has no API key or sender address.
var ErrNotConfigured = errors.New("email settings not configured")

// Fallback templates for staff members who never customized theirs.
const (
	DefaultPickupSubject = "Your laundry is ready for pickup - {trackId}"
	DefaultPickupMessage = "Hi {customerName},\n\nYour laundry order {trackId} is ready for pickup.\nTotal: {price}\n\nTrack your order: {trackUrl}"

	DefaultReservationConfirmSubject = "Reservation confirmed - {reservationId}"
	DefaultReservationConfirmMessage = "Hi {customerName},\n\nYour reservation {reservationId} is confirmed.\nDrop-off: {dropoffDate} at {dropoffTime}"

	orderPlacedSubject = "Order Placed - {trackId}"
	orderPlacedMessage = "Hi {customerName},\n\nThank you for choosing LaundryLink! We received your order {trackId}.\n\nTrack your order: {trackUrl}"
	orderPlacedHTML    = `<p>Hi {customerName},</p>
<p>Thank you for choosing LaundryLink! We received your order <strong>{trackId}</strong>.</p>
<p>Scan this QR code to track your order anytime:</p>
<img src="cid:qrcode" alt="QR Code" width="250" />
<p><a href="{trackUrl}">{trackUrl}</a></p>`
)

// QRContentID is the inline attachment id the order placed email refers to.
const QRContentID = "qrcode"

// PickupNotice carries the placeholders of the pickup email.
type PickupNotice struct {
	CustomerName  string
	CustomerEmail string
	TrackID       string
	Price         decimal.Decimal
	TrackURL      string
}

// Mailer sends transactional email through the Resend HTTP API using each
// staff member's own key and sender address.
type Mailer struct {
	baseURL *url.URL
	client  *http.Client
	log     *zap.Logger
}

// NewMailer creates a Mailer. An unparseable base URL falls back to the SDK default.
func NewMailer(cfg config.EmailConfig, log *zap.Logger) *Mailer {
	m := &Mailer{
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    log,
	}
	if cfg.APIBaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.APIBaseURL, "/") + "/")
		if err != nil {
			log.Warn("invalid email api base url, using default", zap.String("url", cfg.APIBaseURL), zap.Error(err))
		} else {
			m.baseURL = u
		}
	}
	return m
}

// SendPickup tells the customer their order is ready and what it costs.
func (m *Mailer) SendPickup(ctx context.Context, settings *model.UserSettings, n PickupNotice) error {
	if !settings.EmailConfigured() {
		return ErrNotConfigured
	}
	r := strings.NewReplacer(
		"{customerName}", n.CustomerName,
		"{trackId}", n.TrackID,
		"{price}", FormatPrice(n.Price),
		"{trackUrl}", n.TrackURL,
	)
	return m.send(ctx, *settings.ResendAPIKey, &resend.SendEmailRequest{
		From:    *settings.EmailFromAddress,
		To:      []string{n.CustomerEmail},
		Subject: r.Replace(orDefault(settings.PickupEmailSubject, DefaultPickupSubject)),
		Text:    r.Replace(orDefault(settings.PickupEmailMessage, DefaultPickupMessage)),
	})
}

// SendReservationConfirmed tells the customer their booking was accepted by the shop.
func (m *Mailer) SendReservationConfirmed(ctx context.Context, settings *model.UserSettings, res *model.Reservation) error {
	if !settings.EmailConfigured() {
		return ErrNotConfigured
	}
	r := strings.NewReplacer(
		"{customerName}", res.CustomerName,
		"{reservationId}", res.ReservationID,
		"{dropoffDate}", res.DropoffDate.Format("Monday, January 2, 2006"),
		"{dropoffTime}", res.DropoffTime,
	)
	return m.send(ctx, *settings.ResendAPIKey, &resend.SendEmailRequest{
		From:    *settings.EmailFromAddress,
		To:      []string{res.CustomerEmail},
		Subject: r.Replace(orDefault(settings.ReservationConfirmSubject, DefaultReservationConfirmSubject)),
		Text:    r.Replace(orDefault(settings.ReservationConfirmMessage, DefaultReservationConfirmMessage)),
	})
}

// SendOrderPlaced sends the tracking link for a newly created order, with a
// QR code of the link attached inline.
func (m *Mailer) SendOrderPlaced(ctx context.Context, settings *model.UserSettings, o *model.Order, trackURL string) error {
	if !settings.EmailConfigured() {
		return ErrNotConfigured
	}
	r := strings.NewReplacer(
		"{customerName}", o.CustomerName,
		"{trackId}", o.TrackID,
		"{trackUrl}", trackURL,
	)
	req := &resend.SendEmailRequest{
		From:    *settings.EmailFromAddress,
		To:      []string{o.CustomerEmail},
		Subject: r.Replace(orderPlacedSubject),
		Text:    r.Replace(orderPlacedMessage),
	}

	png, err := qrcode.Encode(trackURL, qrcode.Medium, 256)
	if err != nil {
		m.log.Warn("failed to render tracking qr code", zap.String("track_id", o.TrackID), zap.Error(err))
	} else {
		req.Html = strings.NewReplacer(
			"{customerName}", html.EscapeString(o.CustomerName),
			"{trackId}", html.EscapeString(o.TrackID),
			"{trackUrl}", html.EscapeString(trackURL),
		).Replace(orderPlacedHTML)
		req.Attachments = []*resend.Attachment{{
			Content:     png,
			Filename:    "qrcode.png",
			ContentType: "image/png",
			ContentId:   QRContentID,
		}}
	}
	return m.send(ctx, *settings.ResendAPIKey, req)
}

func (m *Mailer) send(ctx context.Context, apiKey string, req *resend.SendEmailRequest) error {
	client := resend.NewCustomClient(m.client, apiKey)
	if m.baseURL != nil {
		client.BaseURL = m.baseURL
	}

	sent, err := client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", strings.Join(req.To, ","), err)
	}
	m.log.Info("email sent", zap.String("id", sent.Id), zap.Strings("to", req.To), zap.String("subject", req.Subject))
	return nil
}

// FormatPrice renders a price the way customers see it.
func FormatPrice(p decimal.Decimal) string {
	return "₱" + p.StringFixed(2)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
